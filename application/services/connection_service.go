package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/chat"
	"knkt-backend/domain/connection"
	"knkt-backend/domain/events"
	"knkt-backend/domain/matching"
	"knkt-backend/domain/profile"
	appErrors "knkt-backend/pkg/errors"
	"knkt-backend/pkg/observability"
)

const (
	// StrongMatchThreshold is the match percentage at or above which a
	// pairing earns summaries and the full "match found" treatment.
	StrongMatchThreshold = 60.0

	// nearbyCooldown is the minimum gap between re-encounter
	// notifications for the same connection.
	nearbyCooldown = time.Hour
)

// ConnectionService drives a connection through its lifecycle:
// proposed, partially accepted, complete. Every contended transition
// rides on a conditional write in the repository, so concurrent
// callers converge on a single stored record without locks.
type ConnectionService struct {
	profiles   ports.ProfileRepository
	conns      ports.ConnectionRepository
	rooms      ports.RoomRepository
	summarizer ports.SummaryGenerator
	notifier   ports.NotificationSender
	publisher  ports.EventPublisher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func NewConnectionService(
	profiles ports.ProfileRepository,
	conns ports.ConnectionRepository,
	rooms ports.RoomRepository,
	summarizer ports.SummaryGenerator,
	notifier ports.NotificationSender,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		profiles:   profiles,
		conns:      conns,
		rooms:      rooms,
		summarizer: summarizer,
		notifier:   notifier,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Propose records that two participants encountered each other. The
// connection ID is canonical for the pair, so repeated or concurrent
// proposals for the same two people resolve to one record; side
// effects (summaries, events, pushes) fire only for the caller whose
// insert actually created the record.
func (s *ConnectionService) Propose(ctx context.Context, uidA, uidB string) (*connection.Connection, error) {
	if uidA == "" || uidB == "" {
		return nil, appErrors.NewValidationError("both participant IDs are required")
	}
	if uidA == uidB {
		return nil, appErrors.NewValidationError("cannot connect a participant to themselves")
	}

	first, err := s.requireProfile(ctx, uidA)
	if err != nil {
		return nil, err
	}
	second, err := s.requireProfile(ctx, uidB)
	if err != nil {
		return nil, err
	}

	pct, err := matchPercentage(first, second)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	conn := connection.New(uidA, uidB, pct, now)

	created, stored, err := s.conns.InsertIfAbsent(ctx, conn)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to store connection")
	}
	if !created {
		// Lost the race or re-proposed an existing pairing. The
		// stored record, including its original match percentage
		// snapshot, wins.
		return stored, nil
	}

	s.metrics.CountConnectionCreated(ctx)
	s.logger.Info("connection created",
		zap.String("connection_id", stored.ConnectionID),
		zap.Float64("match_percentage", stored.MatchPercentage))

	// Everything past this point is best-effort: the connection
	// exists, failures here only degrade the announcement.
	stored = s.announceCreation(ctx, stored, first, second, now)
	return stored, nil
}

// announceCreation runs the creation-only side effects and returns the
// connection, re-read if summaries were attached.
func (s *ConnectionService) announceCreation(
	ctx context.Context,
	conn *connection.Connection,
	first, second *profile.Profile,
	now time.Time,
) *connection.Connection {
	body := fmt.Sprintf("You have a %.0f%% match nearby", conn.MatchPercentage)
	title := "Someone nearby matches your interests"

	if conn.MatchPercentage >= StrongMatchThreshold {
		summaries := s.summarizer.Summarize(ctx, first, second, conn.MatchPercentage)
		if summaries.UID1Summary != nil || summaries.UID2Summary != nil || summaries.NotificationMessage != nil {
			updated, err := s.conns.AttachSummaries(ctx,
				conn.ConnectionID,
				summaries.UID1Summary, summaries.UID2Summary,
				summaries.NotificationMessage, now)
			if err != nil {
				s.logger.Warn("failed to attach summaries",
					zap.String("connection_id", conn.ConnectionID), zap.Error(err))
			} else if updated != nil {
				conn = updated
			}
		}

		title = "Match found!"
		if conn.NotificationMessage != nil && *conn.NotificationMessage != "" {
			body = *conn.NotificationMessage
		}
		s.publish(ctx, events.NewMatchFound(
			conn.ConnectionID, conn.Participants(), conn.MatchPercentage, body, now))
	}

	s.notifyBoth(ctx, conn, title, body, map[string]string{
		"type":          "connection_proposed",
		"connection_id": conn.ConnectionID,
	})
	return conn
}

// Accept records that uid accepted the connection. The positional
// acceptance flag is set atomically; whichever call's room insert
// creates the chat room fires the completion side effects, so they
// happen exactly once even when both participants accept concurrently.
func (s *ConnectionService) Accept(ctx context.Context, connectionID, uid string) (*connection.Connection, error) {
	conn, err := s.requireConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	field := conn.AcceptanceField(uid)
	if field == "" {
		return nil, appErrors.NewNotFoundError("connection not found: " + connectionID)
	}

	now := time.Now().UTC()
	updated, err := s.conns.SetAccepted(ctx, connectionID, field, now)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to record acceptance")
	}
	if updated == nil {
		return nil, appErrors.NewNotFoundError("connection not found: " + connectionID)
	}

	if updated.State() == connection.StateComplete {
		s.completeConnection(ctx, updated, now)
	} else {
		other := updated.Other(uid)
		s.publish(ctx, events.NewConnectionAccepted(connectionID, uid, other, now))
		s.notify(ctx, other, "Connection request",
			"Someone you matched with wants to connect", map[string]string{
				"type":          "connection_accepted",
				"connection_id": connectionID,
			})
	}
	return updated, nil
}

func (s *ConnectionService) completeConnection(ctx context.Context, conn *connection.Connection, now time.Time) {
	room, err := chat.NewRoom(conn.Participants(), now)
	if err != nil {
		s.logger.Error("failed to build chat room",
			zap.String("connection_id", conn.ConnectionID), zap.Error(err))
		return
	}

	created, stored, err := s.rooms.InsertIfAbsent(ctx, room)
	if err != nil {
		s.logger.Error("failed to create chat room",
			zap.String("connection_id", conn.ConnectionID), zap.Error(err))
		return
	}
	if !created {
		// The other participant's accept already completed the
		// connection; nothing left to announce.
		return
	}

	s.metrics.CountConnectionCompleted(ctx)
	s.logger.Info("connection complete",
		zap.String("connection_id", conn.ConnectionID),
		zap.String("room_id", stored.RoomID))

	s.publish(ctx, events.NewConnectionComplete(
		conn.ConnectionID, stored.RoomID, conn.Participants(), now))
	s.notifyBoth(ctx, conn, "It's a connection!",
		"You can now chat with your match", map[string]string{
			"type":          "connection_complete",
			"connection_id": conn.ConnectionID,
			"room_id":       stored.RoomID,
		})
}

// NotifyNearby handles a re-encounter between two already-connected
// participants. Weak pairings and connections notified within the
// cooldown window are silently skipped; racing calls resolve through a
// compare-and-set on the stored timestamp so at most one notifies.
func (s *ConnectionService) NotifyNearby(ctx context.Context, connectionID, callerUID string) (*connection.Connection, error) {
	conn, err := s.requireConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.IsParticipant(callerUID) {
		return nil, appErrors.NewNotFoundError("connection not found: " + connectionID)
	}

	if conn.MatchPercentage < StrongMatchThreshold {
		return conn, nil
	}

	now := time.Now().UTC()
	if conn.LastNearbyNotifiedAt != nil && now.Sub(*conn.LastNearbyNotifiedAt) < nearbyCooldown {
		return conn, nil
	}

	updated, err := s.conns.SetNearbyNotifiedAt(ctx, connectionID, conn.LastNearbyNotifiedAt, now)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to record nearby notification")
	}
	if !updated {
		// Another caller got there first within the window.
		return conn, nil
	}
	conn.LastNearbyNotifiedAt = &now

	s.publish(ctx, events.NewConnectionReencounter(
		conn.ConnectionID, conn.Participants(), conn.MatchPercentage, now))
	s.notifyBoth(ctx, conn, "Your match is nearby again",
		fmt.Sprintf("A %.0f%% match is close by", conn.MatchPercentage),
		map[string]string{
			"type":          "connection_reencounter",
			"connection_id": conn.ConnectionID,
		})
	return conn, nil
}

// Get returns a connection visible to uid.
func (s *ConnectionService) Get(ctx context.Context, connectionID, uid string) (*connection.Connection, error) {
	conn, err := s.requireConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.IsParticipant(uid) {
		return nil, appErrors.NewNotFoundError("connection not found: " + connectionID)
	}
	return conn, nil
}

// ListForUser returns every connection uid participates in.
func (s *ConnectionService) ListForUser(ctx context.Context, uid string) ([]*connection.Connection, error) {
	conns, err := s.conns.ListForUser(ctx, uid)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list connections")
	}
	return conns, nil
}

// ListAcceptedForUser returns uid's mutually accepted connections.
func (s *ConnectionService) ListAcceptedForUser(ctx context.Context, uid string) ([]*connection.Connection, error) {
	conns, err := s.conns.ListAcceptedForUser(ctx, uid)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list accepted connections")
	}
	return conns, nil
}

func (s *ConnectionService) requireProfile(ctx context.Context, uid string) (*profile.Profile, error) {
	p, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load profile")
	}
	if p == nil {
		return nil, appErrors.NewNotFoundError("profile not found: " + uid)
	}
	return p, nil
}

func (s *ConnectionService) requireConnection(ctx context.Context, connectionID string) (*connection.Connection, error) {
	conn, err := s.conns.GetByID(ctx, connectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load connection")
	}
	if conn == nil {
		return nil, appErrors.NewNotFoundError("connection not found: " + connectionID)
	}
	return conn, nil
}

func (s *ConnectionService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", event.GetEventType()), zap.Error(err))
	}
}

func (s *ConnectionService) notifyBoth(ctx context.Context, conn *connection.Connection, title, body string, data map[string]string) {
	for _, uid := range conn.Participants() {
		s.notify(ctx, uid, title, body, data)
	}
}

func (s *ConnectionService) notify(ctx context.Context, uid, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	delivered := s.notifier.NotifyUser(ctx, uid, title, body, data)
	s.metrics.CountNotification(ctx, delivered)
	if !delivered {
		s.logger.Warn("push notification not delivered", zap.String("uid", uid))
	}
}

// matchPercentage scores the pair with the default weights and scales
// to 0-100. The value is snapshotted onto the connection at creation
// and never recomputed.
func matchPercentage(first, second *profile.Profile) (float64, error) {
	score, err := matching.Score(
		first, matching.Vectorize(first),
		second, matching.Vectorize(second),
		matching.DefaultWeights(),
	)
	if err != nil {
		return 0, err
	}
	return score.Score * 100, nil
}

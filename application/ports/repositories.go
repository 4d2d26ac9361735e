// Package ports declares the interfaces the application layer consumes.
// Implementations live under infrastructure; tests substitute in-memory
// fakes.
package ports

import (
	"context"
	"time"

	"knkt-backend/domain/chat"
	"knkt-backend/domain/connection"
	"knkt-backend/domain/profile"
)

// ProfileRepository persists participant profiles. Absence is a normal
// outcome: lookups return (nil, nil) for a missing profile.
type ProfileRepository interface {
	Save(ctx context.Context, p *profile.Profile) error
	GetByUID(ctx context.Context, uid string) (*profile.Profile, error)
	ListAll(ctx context.Context) ([]*profile.Profile, error)
	// Delete removes a profile; false when nothing was stored under uid.
	Delete(ctx context.Context, uid string) (bool, error)
	// SetDeviceToken stores the push token used for notifications.
	SetDeviceToken(ctx context.Context, uid, token string) error
}

// ConnectionRepository persists connection records. The store enforces
// uniqueness on the connection ID and exposes atomic field updates;
// every contended mutation goes through a conditional write, never
// read-modify-write.
type ConnectionRepository interface {
	// InsertIfAbsent attempts a unique-constrained insert. On a
	// uniqueness violation it fetches and returns the existing record
	// with created=false; any other failure is an error.
	InsertIfAbsent(ctx context.Context, conn *connection.Connection) (created bool, stored *connection.Connection, err error)

	// GetByID returns (nil, nil) when the record does not exist.
	GetByID(ctx context.Context, connectionID string) (*connection.Connection, error)

	ListForUser(ctx context.Context, uid string) ([]*connection.Connection, error)
	ListAcceptedForUser(ctx context.Context, uid string) ([]*connection.Connection, error)

	// SetAccepted atomically sets the positional acceptance flag named
	// by field and returns the updated record, or (nil, nil) if the
	// record vanished.
	SetAccepted(ctx context.Context, connectionID, field string, now time.Time) (*connection.Connection, error)

	// AttachSummaries sets the generated relationship summaries.
	AttachSummaries(ctx context.Context, connectionID string, uid1Summary, uid2Summary, notification *string, now time.Time) (*connection.Connection, error)

	// SetNearbyNotifiedAt advances the re-encounter cooldown timestamp.
	// It only succeeds when the stored value still matches previous
	// (nil for never-notified), so racing callers resolve to one winner.
	SetNearbyNotifiedAt(ctx context.Context, connectionID string, previous *time.Time, now time.Time) (updated bool, err error)

	// DeleteForUser removes every connection involving uid, returning
	// how many records were deleted. Used by profile-deletion cascade.
	DeleteForUser(ctx context.Context, uid string) (int, error)
}

// RoomRepository persists chat rooms with the same insert-if-absent
// uniqueness contract as connections.
type RoomRepository interface {
	InsertIfAbsent(ctx context.Context, room *chat.Room) (created bool, stored *chat.Room, err error)
	GetByID(ctx context.Context, roomID string) (*chat.Room, error)
	ListForUser(ctx context.Context, uid string) ([]*chat.Room, error)
	TouchUpdatedAt(ctx context.Context, roomID string, now time.Time) error
}

// MessageRepository persists chat messages
type MessageRepository interface {
	Append(ctx context.Context, msg *chat.Message) error
	// List returns up to limit messages older than before (all when
	// before is nil), newest first, together with the room's total
	// message count.
	List(ctx context.Context, roomID string, limit int, before *time.Time) ([]*chat.Message, int, error)
}

// Session is an active real-time (WebSocket) session for a user
type Session struct {
	SessionID   string
	UID         string
	Endpoint    string
	ConnectedAt time.Time
}

// SessionRepository tracks live real-time sessions
type SessionRepository interface {
	Save(ctx context.Context, s *Session) error
	ListForUser(ctx context.Context, uid string) ([]*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

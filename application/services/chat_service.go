package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/chat"
	"knkt-backend/domain/events"
	appErrors "knkt-backend/pkg/errors"
)

const maxMessageLength = 4000

// ChatService manages rooms and messages between connected
// participants.
type ChatService struct {
	rooms     ports.RoomRepository
	messages  ports.MessageRepository
	notifier  ports.NotificationSender
	publisher ports.EventPublisher
	logger    *zap.Logger
}

func NewChatService(
	rooms ports.RoomRepository,
	messages ports.MessageRepository,
	notifier ports.NotificationSender,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		rooms:     rooms,
		messages:  messages,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// GetOrCreateRoom returns the room for a participant pair, creating it
// if needed. Room IDs are canonical per pair, so repeated calls and
// the completion path converge on the same room.
func (s *ChatService) GetOrCreateRoom(ctx context.Context, uidA, uidB string) (*chat.Room, error) {
	if uidA == "" || uidB == "" {
		return nil, appErrors.NewValidationError("both participant IDs are required")
	}
	if uidA == uidB {
		return nil, appErrors.NewValidationError("cannot open a room with yourself")
	}

	room, err := chat.NewRoom([]string{uidA, uidB}, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	_, stored, err := s.rooms.InsertIfAbsent(ctx, room)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to create room")
	}
	return stored, nil
}

// GetRoom returns a room visible to uid.
func (s *ChatService) GetRoom(ctx context.Context, roomID, uid string) (*chat.Room, error) {
	room, err := s.requireRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(uid) {
		return nil, appErrors.NewNotFoundError("room not found: " + roomID)
	}
	return room, nil
}

// ListRoomsForUser returns every room uid participates in.
func (s *ChatService) ListRoomsForUser(ctx context.Context, uid string) ([]*chat.Room, error) {
	rooms, err := s.rooms.ListForUser(ctx, uid)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list rooms")
	}
	return rooms, nil
}

// PostMessage appends a message to a room and fans it out to the
// other participant. Delivery is best-effort; the message is persisted
// regardless.
func (s *ChatService) PostMessage(ctx context.Context, roomID, senderUID, content string) (*chat.Message, error) {
	if content == "" {
		return nil, appErrors.NewValidationError("message content must not be empty")
	}
	if len(content) > maxMessageLength {
		return nil, appErrors.NewValidationError("message content is too long")
	}

	room, err := s.requireRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(senderUID) {
		return nil, appErrors.NewNotFoundError("room not found: " + roomID)
	}

	now := time.Now().UTC()
	msg := &chat.Message{
		RoomID:    roomID,
		SenderUID: senderUID,
		Content:   content,
		Timestamp: now,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, "failed to store message")
	}
	if err := s.rooms.TouchUpdatedAt(ctx, roomID, now); err != nil {
		s.logger.Warn("failed to bump room activity",
			zap.String("room_id", roomID), zap.Error(err))
	}

	recipients := make([]string, 0, 1)
	for _, uid := range room.Participants {
		if uid != senderUID {
			recipients = append(recipients, uid)
		}
	}
	if s.publisher != nil {
		event := events.NewChatMessagePosted(roomID, senderUID, recipients, content, now)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("chat event publish failed",
				zap.String("room_id", roomID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		for _, uid := range recipients {
			s.notifier.NotifyUser(ctx, uid, "New message", content, map[string]string{
				"type":    "chat_message",
				"room_id": roomID,
			})
		}
	}
	return msg, nil
}

// RoomMessages is a page of chat history.
type RoomMessages struct {
	Messages []*chat.Message
	// Total is the room's full message count, not the page size.
	Total int
}

// ListMessages returns up to limit messages older than before (the
// whole tail when before is nil) in chronological order.
func (s *ChatService) ListMessages(ctx context.Context, roomID, uid string, limit int, before *time.Time) (*RoomMessages, error) {
	if _, err := s.GetRoom(ctx, roomID, uid); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	page, total, err := s.messages.List(ctx, roomID, limit, before)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load messages")
	}

	// The repository returns newest first for efficient pagination;
	// clients read history oldest first.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return &RoomMessages{Messages: page, Total: total}, nil
}

func (s *ChatService) requireRoom(ctx context.Context, roomID string) (*chat.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load room")
	}
	if room == nil {
		return nil, appErrors.NewNotFoundError("room not found: " + roomID)
	}
	return room, nil
}

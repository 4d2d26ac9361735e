package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"knkt-backend/domain/chat"
	"knkt-backend/domain/events"
	pkgerrors "knkt-backend/pkg/errors"
)

type chatFixture struct {
	rooms     *fakeRoomRepo
	messages  *fakeMessageRepo
	notifier  *fakeNotifier
	publisher *fakePublisher
	service   *ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		rooms:     newFakeRoomRepo(),
		messages:  &fakeMessageRepo{},
		notifier:  newFakeNotifier(),
		publisher: &fakePublisher{},
	}
	f.service = NewChatService(f.rooms, f.messages, f.notifier, f.publisher, zap.NewNop())
	return f
}

func TestGetOrCreateRoom(t *testing.T) {
	f := newChatFixture()

	room, err := f.service.GetOrCreateRoom(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", room.RoomID)

	again, err := f.service.GetOrCreateRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, room.RoomID, again.RoomID)
	assert.Equal(t, room.CreatedAt, again.CreatedAt)

	_, err = f.service.GetOrCreateRoom(context.Background(), "alice", "alice")
	assert.Error(t, err)

	_, err = f.service.GetOrCreateRoom(context.Background(), "alice", "")
	assert.Error(t, err)
}

func TestGetRoomIsParticipantGated(t *testing.T) {
	f := newChatFixture()
	room, err := f.service.GetOrCreateRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)

	got, err := f.service.GetRoom(context.Background(), room.RoomID, "alice")
	require.NoError(t, err)
	assert.Equal(t, room.RoomID, got.RoomID)

	_, err = f.service.GetRoom(context.Background(), room.RoomID, "mallory")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.service.GetRoom(context.Background(), "no_such_room", "alice")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPostMessage(t *testing.T) {
	f := newChatFixture()
	room, err := f.service.GetOrCreateRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)

	msg, err := f.service.PostMessage(context.Background(), room.RoomID, "alice", "hey bob")
	require.NoError(t, err)

	assert.Equal(t, "alice", msg.SenderUID)
	assert.Equal(t, "hey bob", msg.Content)
	assert.False(t, msg.Timestamp.IsZero())

	// Fan-out goes to the other participant only.
	assert.Equal(t, []string{events.TypeChatMessage}, f.publisher.types())
	assert.Equal(t, []string{"bob"}, f.publisher.events[0].GetRecipients())
	assert.Equal(t, []string{"bob"}, f.notifier.uids())

	stored, err := f.rooms.GetByID(context.Background(), room.RoomID)
	require.NoError(t, err)
	assert.NotNil(t, stored.UpdatedAt)
}

func TestPostMessageValidation(t *testing.T) {
	f := newChatFixture()
	room, err := f.service.GetOrCreateRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = f.service.PostMessage(context.Background(), room.RoomID, "alice", "")
	assert.Error(t, err)

	_, err = f.service.PostMessage(context.Background(), room.RoomID, "alice", strings.Repeat("x", maxMessageLength+1))
	assert.Error(t, err)

	_, err = f.service.PostMessage(context.Background(), room.RoomID, "mallory", "let me in")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.service.PostMessage(context.Background(), "no_such_room", "alice", "hello?")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestListMessages(t *testing.T) {
	f := newChatFixture()
	room, err := f.service.GetOrCreateRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)

	// Seed with explicit timestamps so ordering is deterministic.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"one", "two", "three", "four"} {
		require.NoError(t, f.messages.Append(context.Background(), &chat.Message{
			RoomID:    room.RoomID,
			SenderUID: "alice",
			Content:   content,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("returns chronological order with the room total", func(t *testing.T) {
		page, err := f.service.ListMessages(context.Background(), room.RoomID, "bob", 10, nil)
		require.NoError(t, err)

		assert.Equal(t, 4, page.Total)
		require.Len(t, page.Messages, 4)
		assert.Equal(t, "one", page.Messages[0].Content)
		assert.Equal(t, "four", page.Messages[3].Content)
	})

	t.Run("limit keeps the newest messages", func(t *testing.T) {
		page, err := f.service.ListMessages(context.Background(), room.RoomID, "bob", 2, nil)
		require.NoError(t, err)

		assert.Equal(t, 4, page.Total)
		require.Len(t, page.Messages, 2)
		assert.Equal(t, "three", page.Messages[0].Content)
		assert.Equal(t, "four", page.Messages[1].Content)
	})

	t.Run("before paginates into older history", func(t *testing.T) {
		cursor := base.Add(2 * time.Minute)
		page, err := f.service.ListMessages(context.Background(), room.RoomID, "bob", 10, &cursor)
		require.NoError(t, err)

		require.Len(t, page.Messages, 2)
		assert.Equal(t, "one", page.Messages[0].Content)
		assert.Equal(t, "two", page.Messages[1].Content)
	})

	t.Run("outsiders cannot read history", func(t *testing.T) {
		_, err := f.service.ListMessages(context.Background(), room.RoomID, "mallory", 10, nil)
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

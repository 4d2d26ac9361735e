// Package chat defines rooms and messages exchanged between connected
// participants.
package chat

import (
	"time"

	"knkt-backend/domain/connection"
	pkgerrors "knkt-backend/pkg/errors"
)

// Room is a two-participant chat room. Its ID uses the same canonical
// pair derivation as the connection ID, so accepting a connection and
// opening its room always land on the same key.
type Room struct {
	RoomID       string     `json:"room_id"`
	Participants []string   `json:"participants"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// NewRoom builds a room for exactly two participants
func NewRoom(participantUIDs []string, now time.Time) (*Room, error) {
	if len(participantUIDs) != 2 {
		return nil, pkgerrors.NewValidationError("exactly two participant UIDs are required")
	}

	uid1, uid2 := connection.SortedPair(participantUIDs[0], participantUIDs[1])
	return &Room{
		RoomID:       connection.PairID(uid1, uid2),
		Participants: []string{uid1, uid2},
		CreatedAt:    now,
	}, nil
}

// HasParticipant reports whether uid belongs to the room
func (r *Room) HasParticipant(uid string) bool {
	for _, p := range r.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// Message is a single chat message within a room
type Message struct {
	RoomID    string    `json:"room_id,omitempty"`
	SenderUID string    `json:"sender_uid"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

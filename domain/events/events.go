// Package events defines the domain events emitted when connections
// change state. Events are fanned out to connected clients over the
// real-time channel and are best-effort: losing one never rolls back
// the state transition that raised it.
package events

import "time"

// SourceBackend identifies this service as the event source
const SourceBackend = "knkt.backend"

// Event type names, also used as the real-time message type seen by clients
const (
	TypeMatchFound            = "match.found"
	TypeConnectionAccepted    = "connection.accepted"
	TypeConnectionComplete    = "connection.complete"
	TypeConnectionReencounter = "connection.reencounter"
	TypeChatMessage           = "chat.message"
)

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetRecipients() []string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Recipients  []string  `json:"recipients"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetRecipients() []string { return e.Recipients }

// MatchFound is raised when a newly created connection clears the
// match threshold.
type MatchFound struct {
	BaseEvent
	ConnectionID    string  `json:"connection_id"`
	MatchPercentage float64 `json:"match_percentage"`
	Notification    string  `json:"notification,omitempty"`
}

// NewMatchFound creates a MatchFound event addressed to both participants
func NewMatchFound(connectionID string, participants []string, matchPercentage float64, notification string, timestamp time.Time) MatchFound {
	return MatchFound{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeMatchFound,
			Timestamp:   timestamp,
			Recipients:  participants,
		},
		ConnectionID:    connectionID,
		MatchPercentage: matchPercentage,
		Notification:    notification,
	}
}

// ConnectionAccepted is raised when one participant accepts; it is
// addressed to the other participant only.
type ConnectionAccepted struct {
	BaseEvent
	ConnectionID string `json:"connection_id"`
	AcceptedBy   string `json:"accepted_by"`
}

// NewConnectionAccepted creates a ConnectionAccepted event
func NewConnectionAccepted(connectionID, acceptedBy, recipient string, timestamp time.Time) ConnectionAccepted {
	return ConnectionAccepted{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeConnectionAccepted,
			Timestamp:   timestamp,
			Recipients:  []string{recipient},
		},
		ConnectionID: connectionID,
		AcceptedBy:   acceptedBy,
	}
}

// ConnectionComplete is raised exactly once, when the second
// acceptance lands and the chat room is created.
type ConnectionComplete struct {
	BaseEvent
	ConnectionID string `json:"connection_id"`
	RoomID       string `json:"room_id"`
}

// NewConnectionComplete creates a ConnectionComplete event
func NewConnectionComplete(connectionID, roomID string, participants []string, timestamp time.Time) ConnectionComplete {
	return ConnectionComplete{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeConnectionComplete,
			Timestamp:   timestamp,
			Recipients:  participants,
		},
		ConnectionID: connectionID,
		RoomID:       roomID,
	}
}

// ConnectionReencounter is raised when two already-connected
// participants come near each other again after the cooldown.
type ConnectionReencounter struct {
	BaseEvent
	ConnectionID    string  `json:"connection_id"`
	MatchPercentage float64 `json:"match_percentage"`
}

// NewConnectionReencounter creates a ConnectionReencounter event
func NewConnectionReencounter(connectionID string, participants []string, matchPercentage float64, timestamp time.Time) ConnectionReencounter {
	return ConnectionReencounter{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeConnectionReencounter,
			Timestamp:   timestamp,
			Recipients:  participants,
		},
		ConnectionID:    connectionID,
		MatchPercentage: matchPercentage,
	}
}

// ChatMessagePosted is raised when a message is stored, addressed to
// the other room participant.
type ChatMessagePosted struct {
	BaseEvent
	RoomID    string `json:"room_id"`
	SenderUID string `json:"sender_uid"`
	Content   string `json:"content"`
}

// NewChatMessagePosted creates a ChatMessagePosted event
func NewChatMessagePosted(roomID, senderUID string, recipients []string, content string, timestamp time.Time) ChatMessagePosted {
	return ChatMessagePosted{
		BaseEvent: BaseEvent{
			AggregateID: roomID,
			EventType:   TypeChatMessage,
			Timestamp:   timestamp,
			Recipients:  recipients,
		},
		RoomID:    roomID,
		SenderUID: senderUID,
		Content:   content,
	}
}

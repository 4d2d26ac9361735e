// Package connection defines the persisted connection record and its
// acceptance state machine.
package connection

import (
	"sort"
	"strings"
	"time"
)

// State describes how far a connection has progressed.
type State string

const (
	// StateProposed: the record exists, neither side accepted.
	StateProposed State = "proposed"
	// StatePartiallyAccepted: exactly one acceptance flag is set.
	StatePartiallyAccepted State = "partially_accepted"
	// StateComplete: both sides accepted. Terminal.
	StateComplete State = "complete"
)

// PairID derives the canonical identifier for a pair of participants.
// The UIDs are sorted so that PairID(a, b) == PairID(b, a); any number
// of creation attempts for the same pair resolve to one record. Chat
// rooms use the same derivation so a connection and its room share a key.
func PairID(uidA, uidB string) string {
	pair := []string{uidA, uidB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// SortedPair returns the two UIDs in canonical order
func SortedPair(uidA, uidB string) (string, string) {
	if uidB < uidA {
		return uidB, uidA
	}
	return uidA, uidB
}

// Connection is the stored record of a proposed-or-accepted pairing.
// The two participant UIDs are held in canonical sorted order; the
// acceptance flags are positional, keyed by which slot a UID occupies.
type Connection struct {
	ConnectionID string `json:"connection_id"`
	UID1         string `json:"uid1"`
	UID2         string `json:"uid2"`
	UID1Accepted bool   `json:"uid1_accepted"`
	UID2Accepted bool   `json:"uid2_accepted"`

	// MatchPercentage is computed once at creation with default
	// weights and never recomputed, even after profile edits.
	MatchPercentage float64 `json:"match_percentage"`

	// Relationship summaries, each written from the other
	// participant's perspective. Nil until attached.
	UID1Summary         *string `json:"uid1_summary,omitempty"`
	UID2Summary         *string `json:"uid2_summary,omitempty"`
	NotificationMessage *string `json:"notification_message,omitempty"`

	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
	LastNearbyNotifiedAt *time.Time `json:"last_nearby_notified_at,omitempty"`
}

// New builds an unaccepted connection for the given pair
func New(uidA, uidB string, matchPercentage float64, now time.Time) *Connection {
	uid1, uid2 := SortedPair(uidA, uidB)
	return &Connection{
		ConnectionID:    PairID(uidA, uidB),
		UID1:            uid1,
		UID2:            uid2,
		MatchPercentage: matchPercentage,
		CreatedAt:       now,
	}
}

// State derives the lifecycle state from the acceptance flags
func (c *Connection) State() State {
	switch {
	case c.UID1Accepted && c.UID2Accepted:
		return StateComplete
	case c.UID1Accepted || c.UID2Accepted:
		return StatePartiallyAccepted
	default:
		return StateProposed
	}
}

// IsParticipant reports whether uid is one of the two parties
func (c *Connection) IsParticipant(uid string) bool {
	return uid == c.UID1 || uid == c.UID2
}

// AcceptanceField returns the positional flag name uid occupies, used
// as the atomic-update target. Empty string for non-participants.
func (c *Connection) AcceptanceField(uid string) string {
	switch uid {
	case c.UID1:
		return "uid1_accepted"
	case c.UID2:
		return "uid2_accepted"
	default:
		return ""
	}
}

// Other returns the counterpart of uid, or empty for non-participants
func (c *Connection) Other(uid string) string {
	switch uid {
	case c.UID1:
		return c.UID2
	case c.UID2:
		return c.UID1
	default:
		return ""
	}
}

// Participants returns both UIDs in canonical order
func (c *Connection) Participants() []string {
	return []string{c.UID1, c.UID2}
}

// SummaryFor returns the summary written for uid about the other
// participant, or nil.
func (c *Connection) SummaryFor(uid string) *string {
	// uid1_summary describes UID1 and is shown to UID2, mirroring how
	// the summaries are generated.
	switch uid {
	case c.UID1:
		return c.UID2Summary
	case c.UID2:
		return c.UID1Summary
	default:
		return nil
	}
}

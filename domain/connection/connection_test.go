package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairID(t *testing.T) {
	t.Run("is order independent", func(t *testing.T) {
		assert.Equal(t, PairID("alice", "bob"), PairID("bob", "alice"))
	})

	t.Run("joins sorted UIDs with underscore", func(t *testing.T) {
		assert.Equal(t, "alice_bob", PairID("bob", "alice"))
	})

	t.Run("distinct pairs get distinct IDs", func(t *testing.T) {
		assert.NotEqual(t, PairID("alice", "bob"), PairID("alice", "carol"))
	})
}

func TestConnectionState(t *testing.T) {
	now := time.Now()
	conn := New("bob", "alice", 72.5, now)

	assert.Equal(t, "alice", conn.UID1)
	assert.Equal(t, "bob", conn.UID2)
	assert.Equal(t, StateProposed, conn.State())

	conn.UID1Accepted = true
	assert.Equal(t, StatePartiallyAccepted, conn.State())

	conn.UID2Accepted = true
	assert.Equal(t, StateComplete, conn.State())
}

func TestAcceptanceField(t *testing.T) {
	conn := New("bob", "alice", 50, time.Now())

	assert.Equal(t, "uid1_accepted", conn.AcceptanceField("alice"))
	assert.Equal(t, "uid2_accepted", conn.AcceptanceField("bob"))
	assert.Equal(t, "", conn.AcceptanceField("mallory"))
}

func TestOtherAndParticipants(t *testing.T) {
	conn := New("bob", "alice", 50, time.Now())

	assert.Equal(t, "bob", conn.Other("alice"))
	assert.Equal(t, "alice", conn.Other("bob"))
	assert.Equal(t, "", conn.Other("mallory"))
	assert.Equal(t, []string{"alice", "bob"}, conn.Participants())
	assert.True(t, conn.IsParticipant("alice"))
	assert.False(t, conn.IsParticipant("mallory"))
}

func TestSummaryFor(t *testing.T) {
	conn := New("bob", "alice", 80, time.Now())
	aboutAlice := "alice is a designer"
	aboutBob := "bob writes Go"
	conn.UID1Summary = &aboutAlice
	conn.UID2Summary = &aboutBob

	// Each participant reads the summary written about the other.
	assert.Equal(t, &aboutBob, conn.SummaryFor("alice"))
	assert.Equal(t, &aboutAlice, conn.SummaryFor("bob"))
	assert.Nil(t, conn.SummaryFor("mallory"))
}

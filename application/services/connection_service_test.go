package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/connection"
	"knkt-backend/domain/events"
	"knkt-backend/domain/profile"
	pkgerrors "knkt-backend/pkg/errors"
)

type connFixture struct {
	profiles   *fakeProfileRepo
	conns      *fakeConnRepo
	rooms      *fakeRoomRepo
	summarizer *stubSummarizer
	notifier   *fakeNotifier
	publisher  *fakePublisher
	service    *ConnectionService
}

func newConnFixture() *connFixture {
	f := &connFixture{
		profiles:   newFakeProfileRepo(),
		conns:      newFakeConnRepo(),
		rooms:      newFakeRoomRepo(),
		summarizer: &stubSummarizer{},
		notifier:   newFakeNotifier(),
		publisher:  &fakePublisher{},
	}
	f.service = NewConnectionService(
		f.profiles, f.conns, f.rooms,
		f.summarizer, f.notifier, f.publisher,
		nil, zap.NewNop())
	return f
}

func (f *connFixture) seedProfile(t *testing.T, uid string, possessed, needed []string, focus []profile.FocusArea, industries []string) {
	t.Helper()
	p := &profile.Profile{
		UID:        uid,
		CreatedAt:  time.Now().UTC(),
		FocusAreas: focus,
	}
	for _, name := range possessed {
		p.Skills.Possessed = append(p.Skills.Possessed,
			profile.PossessedSkill{Name: name, Source: profile.SourceQuestionnaire})
	}
	for _, name := range needed {
		p.Skills.Needed = append(p.Skills.Needed,
			profile.NeededSkill{Name: name, Priority: profile.PriorityMustHave})
	}
	if len(industries) > 0 {
		p.Project = &profile.Project{Industry: industries}
	}
	require.NoError(t, f.profiles.Save(context.Background(), p))
}

// seedStrongPair stores two perfectly complementary profiles so the
// match percentage lands at 100.
func (f *connFixture) seedStrongPair(t *testing.T) {
	t.Helper()
	f.seedProfile(t, "alice", []string{"go"}, []string{"design"},
		[]profile.FocusArea{profile.FocusStartup}, []string{"fintech"})
	f.seedProfile(t, "bob", []string{"design"}, []string{"go"},
		[]profile.FocusArea{profile.FocusStartup}, []string{"fintech"})
}

// seedWeakPair stores two profiles with nothing in common.
func (f *connFixture) seedWeakPair(t *testing.T) {
	t.Helper()
	f.seedProfile(t, "alice", []string{"go"}, []string{"design"},
		[]profile.FocusArea{profile.FocusStartup}, []string{"fintech"})
	f.seedProfile(t, "bob", []string{"sales"}, []string{"marketing"},
		[]profile.FocusArea{profile.FocusResearch}, []string{"agritech"})
}

func strPtr(s string) *string { return &s }

func TestProposeStrongMatch(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)
	f.summarizer.out = ports.ConnectionSummaries{
		UID1Summary:         strPtr("about alice"),
		UID2Summary:         strPtr("about bob"),
		NotificationMessage: strPtr("You both build fintech"),
	}

	conn, err := f.service.Propose(context.Background(), "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice_bob", conn.ConnectionID)
	assert.Equal(t, connection.StateProposed, conn.State())
	assert.InDelta(t, 100.0, conn.MatchPercentage, 0.001)

	assert.Equal(t, 1, f.summarizer.calls)
	require.NotNil(t, conn.UID1Summary)
	assert.Equal(t, "about alice", *conn.UID1Summary)
	require.NotNil(t, conn.NotificationMessage)

	assert.Equal(t, []string{events.TypeMatchFound}, f.publisher.types())
	assert.ElementsMatch(t, []string{"alice", "bob"}, f.notifier.uids())
	assert.Equal(t, "Match found!", f.notifier.sent[0].title)
	assert.Equal(t, "You both build fintech", f.notifier.sent[0].body)
}

func TestProposeWeakMatch(t *testing.T) {
	f := newConnFixture()
	f.seedWeakPair(t)

	conn, err := f.service.Propose(context.Background(), "alice", "bob")
	require.NoError(t, err)

	assert.Less(t, conn.MatchPercentage, StrongMatchThreshold)
	assert.Equal(t, 0, f.summarizer.calls)
	assert.Nil(t, conn.UID1Summary)

	// No match-found event below the threshold, but both sides still
	// hear about the proposal.
	assert.Empty(t, f.publisher.types())
	assert.ElementsMatch(t, []string{"alice", "bob"}, f.notifier.uids())
	assert.Equal(t, "Someone nearby matches your interests", f.notifier.sent[0].title)
}

func TestProposeIsIdempotent(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)

	first, err := f.service.Propose(context.Background(), "alice", "bob")
	require.NoError(t, err)

	eventsBefore := len(f.publisher.types())
	pushesBefore := len(f.notifier.uids())

	// Reversed argument order still lands on the same record and runs
	// no creation side effects.
	second, err := f.service.Propose(context.Background(), "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ConnectionID, second.ConnectionID)
	assert.Equal(t, 1, f.summarizer.calls)
	assert.Len(t, f.publisher.types(), eventsBefore)
	assert.Len(t, f.notifier.uids(), pushesBefore)
}

func TestProposeValidation(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)

	_, err := f.service.Propose(context.Background(), "", "bob")
	assert.Error(t, err)

	_, err = f.service.Propose(context.Background(), "alice", "alice")
	assert.Error(t, err)

	_, err = f.service.Propose(context.Background(), "alice", "ghost")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAcceptLifecycle(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)

	conn, err := f.service.Propose(context.Background(), "alice", "bob")
	require.NoError(t, err)

	f.publisher.events = nil
	f.notifier.sent = nil

	t.Run("first acceptance is partial", func(t *testing.T) {
		updated, err := f.service.Accept(context.Background(), conn.ConnectionID, "alice")
		require.NoError(t, err)

		assert.Equal(t, connection.StatePartiallyAccepted, updated.State())
		assert.True(t, updated.UID1Accepted)
		assert.False(t, updated.UID2Accepted)

		assert.Equal(t, []string{events.TypeConnectionAccepted}, f.publisher.types())
		assert.Equal(t, []string{"bob"}, f.notifier.uids())

		// No room yet.
		room, err := f.rooms.GetByID(context.Background(), conn.ConnectionID)
		require.NoError(t, err)
		assert.Nil(t, room)
	})

	t.Run("second acceptance completes and opens the room", func(t *testing.T) {
		f.publisher.events = nil
		f.notifier.sent = nil

		updated, err := f.service.Accept(context.Background(), conn.ConnectionID, "bob")
		require.NoError(t, err)

		assert.Equal(t, connection.StateComplete, updated.State())
		assert.Equal(t, []string{events.TypeConnectionComplete}, f.publisher.types())
		assert.ElementsMatch(t, []string{"alice", "bob"}, f.notifier.uids())

		room, err := f.rooms.GetByID(context.Background(), conn.ConnectionID)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Equal(t, []string{"alice", "bob"}, room.Participants)
	})

	t.Run("repeated acceptance does not re-announce", func(t *testing.T) {
		f.publisher.events = nil
		f.notifier.sent = nil

		updated, err := f.service.Accept(context.Background(), conn.ConnectionID, "bob")
		require.NoError(t, err)

		assert.Equal(t, connection.StateComplete, updated.State())
		assert.Empty(t, f.publisher.types())
		assert.Empty(t, f.notifier.uids())
	})
}

func TestAcceptRejectsOutsiders(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)

	conn, err := f.service.Propose(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = f.service.Accept(context.Background(), conn.ConnectionID, "mallory")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.service.Accept(context.Background(), "missing_pair", "alice")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNotifyNearby(t *testing.T) {
	t.Run("weak connections are skipped", func(t *testing.T) {
		f := newConnFixture()
		f.seedWeakPair(t)
		conn, err := f.service.Propose(context.Background(), "alice", "bob")
		require.NoError(t, err)

		f.publisher.events = nil
		f.notifier.sent = nil

		updated, err := f.service.NotifyNearby(context.Background(), conn.ConnectionID, "alice")
		require.NoError(t, err)

		assert.Nil(t, updated.LastNearbyNotifiedAt)
		assert.Empty(t, f.publisher.types())
		assert.Empty(t, f.notifier.uids())
	})

	t.Run("strong connections notify once per cooldown", func(t *testing.T) {
		f := newConnFixture()
		f.seedStrongPair(t)
		conn, err := f.service.Propose(context.Background(), "alice", "bob")
		require.NoError(t, err)

		f.publisher.events = nil
		f.notifier.sent = nil

		updated, err := f.service.NotifyNearby(context.Background(), conn.ConnectionID, "alice")
		require.NoError(t, err)

		require.NotNil(t, updated.LastNearbyNotifiedAt)
		assert.Equal(t, []string{events.TypeConnectionReencounter}, f.publisher.types())
		assert.ElementsMatch(t, []string{"alice", "bob"}, f.notifier.uids())

		// A second encounter right away stays quiet.
		f.publisher.events = nil
		f.notifier.sent = nil

		_, err = f.service.NotifyNearby(context.Background(), conn.ConnectionID, "alice")
		require.NoError(t, err)
		assert.Empty(t, f.publisher.types())
		assert.Empty(t, f.notifier.uids())
	})

	t.Run("rejects non-participants", func(t *testing.T) {
		f := newConnFixture()
		f.seedStrongPair(t)
		conn, err := f.service.Propose(context.Background(), "alice", "bob")
		require.NoError(t, err)

		f.publisher.events = nil
		f.notifier.sent = nil

		_, err = f.service.NotifyNearby(context.Background(), conn.ConnectionID, "carol")
		assert.True(t, pkgerrors.IsNotFound(err))
		assert.Empty(t, f.publisher.types())
		assert.Empty(t, f.notifier.uids())
	})

	t.Run("notifies again after the cooldown", func(t *testing.T) {
		f := newConnFixture()
		f.seedStrongPair(t)
		conn, err := f.service.Propose(context.Background(), "alice", "bob")
		require.NoError(t, err)

		// Backdate the stored timestamp past the cooldown window.
		stale := time.Now().UTC().Add(-2 * time.Hour)
		f.conns.conns[conn.ConnectionID].LastNearbyNotifiedAt = &stale

		f.publisher.events = nil
		f.notifier.sent = nil

		_, err = f.service.NotifyNearby(context.Background(), conn.ConnectionID, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{events.TypeConnectionReencounter}, f.publisher.types())
	})
}

func TestConcurrentPropose(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)
	f.summarizer.out = ports.ConnectionSummaries{
		NotificationMessage: strPtr("You both build fintech"),
	}

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "alice", "bob"
			if i%2 == 1 {
				from, to = to, from
			}
			conn, err := f.service.Propose(context.Background(), from, to)
			errs[i] = err
			if err == nil {
				ids[i] = conn.ConnectionID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "alice_bob", ids[i])
	}

	// One stored record, one summary, one announcement burst.
	assert.Len(t, f.conns.conns, 1)
	assert.Equal(t, 1, f.summarizer.callCount())
	assert.Equal(t, []string{events.TypeMatchFound}, f.publisher.types())
	assert.ElementsMatch(t, []string{"alice", "bob"}, f.notifier.uids())
}

func TestConcurrentAccept(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)
	conn, err := f.service.Propose(context.Background(), "alice", "bob")
	require.NoError(t, err)

	f.publisher.events = nil
	f.notifier.sent = nil

	var wg sync.WaitGroup
	for _, uid := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := f.service.Accept(context.Background(), conn.ConnectionID, uid)
			assert.NoError(t, err)
		}(uid)
	}
	wg.Wait()

	stored, err := f.conns.GetByID(context.Background(), conn.ConnectionID)
	require.NoError(t, err)
	assert.Equal(t, connection.StateComplete, stored.State())

	// Both accepts race toward completion; exactly one creates the
	// room and announces it.
	assert.Len(t, f.rooms.rooms, 1)
	completions := 0
	for _, typ := range f.publisher.types() {
		if typ == events.TypeConnectionComplete {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}

func TestGetAndList(t *testing.T) {
	f := newConnFixture()
	f.seedStrongPair(t)
	f.seedProfile(t, "carol", []string{"design"}, []string{"go"},
		[]profile.FocusArea{profile.FocusStartup}, nil)

	ab, err := f.service.Propose(context.Background(), "alice", "bob")
	require.NoError(t, err)
	_, err = f.service.Propose(context.Background(), "alice", "carol")
	require.NoError(t, err)

	t.Run("get is participant gated", func(t *testing.T) {
		got, err := f.service.Get(context.Background(), ab.ConnectionID, "alice")
		require.NoError(t, err)
		assert.Equal(t, ab.ConnectionID, got.ConnectionID)

		_, err = f.service.Get(context.Background(), ab.ConnectionID, "carol")
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("list returns every connection for the user", func(t *testing.T) {
		conns, err := f.service.ListForUser(context.Background(), "alice")
		require.NoError(t, err)
		assert.Len(t, conns, 2)

		conns, err = f.service.ListForUser(context.Background(), "bob")
		require.NoError(t, err)
		assert.Len(t, conns, 1)
	})

	t.Run("accepted list holds only mutual acceptances", func(t *testing.T) {
		conns, err := f.service.ListAcceptedForUser(context.Background(), "alice")
		require.NoError(t, err)
		assert.Empty(t, conns)

		// One side accepting is still a pending connection.
		_, err = f.service.Accept(context.Background(), ab.ConnectionID, "alice")
		require.NoError(t, err)

		conns, err = f.service.ListAcceptedForUser(context.Background(), "alice")
		require.NoError(t, err)
		assert.Empty(t, conns)

		_, err = f.service.Accept(context.Background(), ab.ConnectionID, "bob")
		require.NoError(t, err)

		for _, uid := range []string{"alice", "bob"} {
			conns, err = f.service.ListAcceptedForUser(context.Background(), uid)
			require.NoError(t, err)
			require.Len(t, conns, 1)
			assert.Equal(t, ab.ConnectionID, conns[0].ConnectionID)
		}

		conns, err = f.service.ListAcceptedForUser(context.Background(), "carol")
		require.NoError(t, err)
		assert.Empty(t, conns)
	})
}

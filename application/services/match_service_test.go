package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"knkt-backend/domain/matching"
	"knkt-backend/domain/profile"
	pkgerrors "knkt-backend/pkg/errors"
)

func seedMatchProfile(t *testing.T, repo *fakeProfileRepo, uid string, possessed, needed []string) {
	t.Helper()
	p := &profile.Profile{
		UID:        uid,
		CreatedAt:  time.Now().UTC(),
		FocusAreas: []profile.FocusArea{profile.FocusStartup},
	}
	for _, name := range possessed {
		p.Skills.Possessed = append(p.Skills.Possessed,
			profile.PossessedSkill{Name: name, Source: profile.SourceQuestionnaire})
	}
	for _, name := range needed {
		p.Skills.Needed = append(p.Skills.Needed,
			profile.NeededSkill{Name: name, Priority: profile.PriorityMustHave})
	}
	require.NoError(t, repo.Save(context.Background(), p))
}

func TestFindMatches(t *testing.T) {
	repo := newFakeProfileRepo()
	seedMatchProfile(t, repo, "alice", []string{"go"}, []string{"design"})
	seedMatchProfile(t, repo, "bob", []string{"design"}, []string{"go"})
	seedMatchProfile(t, repo, "carol", []string{"sales"}, []string{"marketing"})

	svc := NewMatchService(repo, nil, zap.NewNop())

	t.Run("ranks complementary candidates first", func(t *testing.T) {
		result, err := svc.FindMatches(context.Background(), "alice", 10, 0, matching.DefaultWeights())
		require.NoError(t, err)

		assert.Equal(t, "alice", result.Query.UID)
		assert.Equal(t, 2, result.CandidateCount)
		require.Len(t, result.Matches, 2)
		assert.Equal(t, "bob", result.Matches[0].Profile.UID)
		assert.Greater(t, result.Matches[0].Score.Score, result.Matches[1].Score.Score)
	})

	t.Run("renormalizes caller weights", func(t *testing.T) {
		// Same ratios as the defaults, scaled up; scores must not change.
		scaled := matching.Weights{Complementarity: 6.5, Focus: 2.0, Industry: 1.5}
		a, err := svc.FindMatches(context.Background(), "alice", 10, 0, matching.DefaultWeights())
		require.NoError(t, err)
		b, err := svc.FindMatches(context.Background(), "alice", 10, 0, scaled)
		require.NoError(t, err)

		require.Len(t, b.Matches, len(a.Matches))
		assert.InDelta(t, a.Matches[0].Score.Score, b.Matches[0].Score.Score, 1e-9)
	})

	t.Run("rejects all-zero weights", func(t *testing.T) {
		_, err := svc.FindMatches(context.Background(), "alice", 10, 0, matching.Weights{})
		assert.Error(t, err)
	})

	t.Run("unknown query profile", func(t *testing.T) {
		_, err := svc.FindMatches(context.Background(), "ghost", 10, 0, matching.DefaultWeights())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

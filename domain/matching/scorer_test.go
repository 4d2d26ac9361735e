package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knkt-backend/domain/profile"
)

func buildProfile(uid string, possessed, needed []string, focus []profile.FocusArea, industries []string) *profile.Profile {
	p := &profile.Profile{
		UID:        uid,
		FocusAreas: focus,
	}
	for _, name := range possessed {
		p.Skills.Possessed = append(p.Skills.Possessed, profile.PossessedSkill{
			Name: name, Source: profile.SourceQuestionnaire,
		})
	}
	for _, name := range needed {
		p.Skills.Needed = append(p.Skills.Needed, profile.NeededSkill{
			Name: name, Priority: profile.PriorityMustHave,
		})
	}
	if len(industries) > 0 {
		p.Project = &profile.Project{Industry: industries}
	}
	return p
}

func TestWeightsNormalize(t *testing.T) {
	t.Run("scales to unit sum", func(t *testing.T) {
		w, err := Weights{Complementarity: 2, Focus: 1, Industry: 1}.Normalize()
		require.NoError(t, err)
		assert.InDelta(t, 0.5, w.Complementarity, 1e-9)
		assert.InDelta(t, 0.25, w.Focus, 1e-9)
		assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	})

	t.Run("near-zero weights are valid", func(t *testing.T) {
		w, err := Weights{Complementarity: 1e-9}.Normalize()
		require.NoError(t, err)
		assert.InDelta(t, 1.0, w.Complementarity, 1e-9)
	})

	t.Run("all-zero weights rejected", func(t *testing.T) {
		_, err := Weights{}.Normalize()
		assert.Error(t, err)
	})
}

func TestScore(t *testing.T) {
	weights := DefaultWeights()

	t.Run("matched skills are literal sorted intersections", func(t *testing.T) {
		// Query needs react and python; candidate offers Python and
		// React with different casing plus extras.
		query := buildProfile("q", []string{"go"}, []string{"react", "python"}, nil, nil)
		candidate := buildProfile("c", []string{"Python", " React ", "rust"}, []string{"go"}, nil, nil)

		score, err := Score(query, Vectorize(query), candidate, Vectorize(candidate), weights)
		require.NoError(t, err)
		assert.Equal(t, []string{"python", "react"}, score.MatchedSkills)
		assert.Equal(t, []string{"go"}, score.SkillsYouOffer)
	})

	t.Run("lexical complementarity without embeddings", func(t *testing.T) {
		query := buildProfile("q", []string{"design"}, []string{"go"}, nil, nil)
		candidate := buildProfile("c", []string{"go"}, []string{"design"}, nil, nil)

		score, err := Score(query, Vectorize(query), candidate, Vectorize(candidate), weights)
		require.NoError(t, err)
		// Perfect both ways: each side's single need is covered.
		assert.InDelta(t, 1.0, score.HelpTheyGiveYou, 1e-9)
		assert.InDelta(t, 1.0, score.HelpYouGiveThem, 1e-9)
		assert.InDelta(t, 1.0, score.Complementarity, 1e-9)
	})

	t.Run("numeric embeddings drive complementarity when present", func(t *testing.T) {
		query := buildProfile("q", []string{"a"}, []string{"b"}, nil, nil)
		candidate := buildProfile("c", []string{"x"}, []string{"y"}, nil, nil)
		query.Embeddings = &profile.EmbeddingBundle{
			PossessedVector: profile.NumericVector([]float64{0, 1}),
			NeededVector:    profile.NumericVector([]float64{1, 0}),
		}
		candidate.Embeddings = &profile.EmbeddingBundle{
			PossessedVector: profile.NumericVector([]float64{1, 0}),
			NeededVector:    profile.NumericVector([]float64{0, 1}),
		}

		score, err := Score(query, Vectorize(query), candidate, Vectorize(candidate), weights)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score.HelpTheyGiveYou, 1e-9)
		assert.InDelta(t, 1.0, score.HelpYouGiveThem, 1e-9)
		// Name sets are disjoint, so literal highlighting stays empty
		// even though the embedding comparison is perfect.
		assert.Empty(t, score.MatchedSkills)
	})

	t.Run("focus overlap uses fixed-order indicators", func(t *testing.T) {
		query := buildProfile("q", nil, nil, []profile.FocusArea{profile.FocusStartup}, nil)
		candidate := buildProfile("c", nil, nil, []profile.FocusArea{profile.FocusStartup, profile.FocusResearch}, nil)

		score, err := Score(query, Vectorize(query), candidate, Vectorize(candidate), weights)
		require.NoError(t, err)
		// cos([1,0,...],[1,1,0,...]) = 1/sqrt(2)
		assert.InDelta(t, 0.7071, score.FocusOverlap, 1e-3)
	})

	t.Run("no focus tags degrade to zero overlap", func(t *testing.T) {
		query := buildProfile("q", nil, nil, nil, nil)
		candidate := buildProfile("c", nil, nil, []profile.FocusArea{profile.FocusLooking}, nil)

		score, err := Score(query, Vectorize(query), candidate, Vectorize(candidate), weights)
		require.NoError(t, err)
		assert.Equal(t, 0.0, score.FocusOverlap)
	})

	t.Run("industry overlap is jaccard over tags", func(t *testing.T) {
		query := buildProfile("q", nil, nil, nil, []string{"fintech", "ai"})
		candidate := buildProfile("c", nil, nil, nil, []string{"ai", "health"})

		score, err := Score(query, Vectorize(query), candidate, Vectorize(candidate), weights)
		require.NoError(t, err)
		assert.InDelta(t, 1.0/3.0, score.IndustryOverlap, 1e-9)
	})

	t.Run("score is bounded for non-negative inputs", func(t *testing.T) {
		query := buildProfile("q", []string{"go", "design"}, []string{"react"},
			[]profile.FocusArea{profile.FocusStartup}, []string{"ai"})
		candidate := buildProfile("c", []string{"react"}, []string{"go"},
			[]profile.FocusArea{profile.FocusStartup}, []string{"ai"})

		score, err := Score(query, Vectorize(query), candidate, Vectorize(candidate), weights)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score.Score, 0.0)
		assert.LessOrEqual(t, score.Score, 1.0)
	})

	t.Run("symmetric inputs swap directional components", func(t *testing.T) {
		a := buildProfile("a", []string{"go"}, []string{"react", "design"}, nil, nil)
		b := buildProfile("b", []string{"react"}, []string{"go"}, nil, nil)

		ab, err := Score(a, Vectorize(a), b, Vectorize(b), weights)
		require.NoError(t, err)
		ba, err := Score(b, Vectorize(b), a, Vectorize(a), weights)
		require.NoError(t, err)

		assert.InDelta(t, ab.HelpTheyGiveYou, ba.HelpYouGiveThem, 1e-9)
		assert.InDelta(t, ab.HelpYouGiveThem, ba.HelpTheyGiveYou, 1e-9)
		assert.InDelta(t, ab.Score, ba.Score, 1e-9)
	})

	t.Run("all-zero weights rejected", func(t *testing.T) {
		query := buildProfile("q", nil, nil, nil, nil)
		_, err := Score(query, Vectorize(query), query, Vectorize(query), Weights{})
		assert.Error(t, err)
	})
}

package matching

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"knkt-backend/domain/profile"
	pkgerrors "knkt-backend/pkg/errors"
)

// ProfileSource supplies the candidate pool. Satisfied by the profile
// repository port.
type ProfileSource interface {
	ListAll(ctx context.Context) ([]*profile.Profile, error)
}

// Match pairs a candidate profile with its score against the query.
type Match struct {
	Profile *profile.Profile
	Score   MatchScore
}

// Ranker scores a query profile against the full candidate pool.
// Scoring is a pure function of its inputs; rankings are recomputed on
// every request and never persisted.
type Ranker struct {
	profiles ProfileSource
	logger   *zap.Logger
}

// NewRanker creates a ranker backed by the given profile source
func NewRanker(profiles ProfileSource, logger *zap.Logger) *Ranker {
	return &Ranker{
		profiles: profiles,
		logger:   logger,
	}
}

// FindMatches loads every profile, scores the query against each other
// profile, keeps candidates scoring at or above threshold, and returns
// them sorted by score descending (ties broken by candidate UID
// ascending) truncated to limit. The second return value is the
// candidate pool size before threshold filtering and truncation.
func (r *Ranker) FindMatches(
	ctx context.Context,
	queryUID string,
	limit int,
	threshold float64,
	weights Weights,
) (*profile.Profile, int, []Match, error) {
	all, err := r.profiles.ListAll(ctx)
	if err != nil {
		return nil, 0, nil, pkgerrors.Wrap(err, "failed to load candidate pool")
	}

	var queryProfile *profile.Profile
	candidates := make([]*profile.Profile, 0, len(all))
	for _, p := range all {
		if p.UID == queryUID {
			queryProfile = p
		} else {
			candidates = append(candidates, p)
		}
	}

	if queryProfile == nil {
		return nil, 0, nil, pkgerrors.NewNotFoundError("participant profile")
	}

	queryVec := Vectorize(queryProfile)

	matches := make([]Match, 0, len(candidates))
	for _, cand := range candidates {
		candVec := Vectorize(cand)
		score, err := Score(queryProfile, queryVec, cand, candVec, weights)
		if err != nil {
			return nil, 0, nil, err
		}
		if score.Score >= threshold {
			matches = append(matches, Match{Profile: cand, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score.Score != matches[j].Score.Score {
			return matches[i].Score.Score > matches[j].Score.Score
		}
		return matches[i].Profile.UID < matches[j].Profile.UID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	r.logger.Debug("Ranked match candidates",
		zap.String("queryUID", queryUID),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(matches)),
		zap.Float64("threshold", threshold),
	)

	return queryProfile, len(candidates), matches, nil
}

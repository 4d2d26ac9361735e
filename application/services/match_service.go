package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/matching"
	"knkt-backend/domain/profile"
	"knkt-backend/pkg/observability"
)

// MatchService answers "who should this participant meet" queries.
type MatchService struct {
	ranker  *matching.Ranker
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewMatchService(profiles ports.ProfileRepository, metrics *observability.Metrics, logger *zap.Logger) *MatchService {
	return &MatchService{
		ranker:  matching.NewRanker(profiles, logger),
		metrics: metrics,
		logger:  logger,
	}
}

// MatchResult is the outcome of one ranking query.
type MatchResult struct {
	Query *profile.Profile
	// CandidateCount is the candidate pool size before threshold
	// filtering and truncation.
	CandidateCount int
	Matches        []matching.Match
}

// FindMatches ranks every other profile against uid. Weights are
// renormalized here so callers may pass any positive combination.
func (s *MatchService) FindMatches(ctx context.Context, uid string, limit int, threshold float64, weights matching.Weights) (*MatchResult, error) {
	normalized, err := weights.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	query, candidates, matches, err := s.ranker.FindMatches(ctx, uid, limit, threshold, normalized)
	if err != nil {
		return nil, err
	}
	s.metrics.CountMatchComputed(ctx, candidates)
	s.metrics.RecordDuration(ctx, "Match", time.Since(start))

	return &MatchResult{
		Query:          query,
		CandidateCount: candidates,
		Matches:        matches,
	}, nil
}

package matching

import (
	"sort"

	"knkt-backend/domain/profile"
	pkgerrors "knkt-backend/pkg/errors"
)

// Weights controls the relative contribution of each sub-score.
// Callers must normalize weights to sum to 1; Score rejects an
// all-zero triple and does not renormalize anything else.
type Weights struct {
	Complementarity float64 `json:"complementarity"`
	Focus           float64 `json:"focus"`
	Industry        float64 `json:"industry"`
}

// DefaultWeights are used when the caller supplies none, and for the
// match-percentage snapshot taken at connection creation.
func DefaultWeights() Weights {
	return Weights{
		Complementarity: 0.65,
		Focus:           0.20,
		Industry:        0.15,
	}
}

// Sum returns the weight total
func (w Weights) Sum() float64 {
	return w.Complementarity + w.Focus + w.Industry
}

// Normalize scales the weights to sum to 1. An all-zero triple is
// rejected; near-zero totals are valid and simply amplified.
func (w Weights) Normalize() (Weights, error) {
	sum := w.Sum()
	if sum == 0 {
		return Weights{}, pkgerrors.NewValidationError("match weights must not all be zero")
	}
	return Weights{
		Complementarity: w.Complementarity / sum,
		Focus:           w.Focus / sum,
		Industry:        w.Industry / sum,
	}, nil
}

// MatchScore is the explainable result of scoring one candidate
// against the query profile.
type MatchScore struct {
	Score           float64  `json:"score"`
	Complementarity float64  `json:"complementarity"`
	HelpTheyGiveYou float64  `json:"help_they_give_you"`
	HelpYouGiveThem float64  `json:"help_you_give_them"`
	FocusOverlap    float64  `json:"focus_overlap"`
	IndustryOverlap float64  `json:"industry_overlap"`
	MatchedSkills   []string `json:"matched_skills"`
	SkillsYouOffer  []string `json:"skills_you_offer"`
}

// Score computes the weighted match between the query and a candidate.
func Score(
	queryProfile *profile.Profile,
	queryVec VectorBundle,
	candidateProfile *profile.Profile,
	candidateVec VectorBundle,
	weights Weights,
) (MatchScore, error) {
	if weights.Sum() == 0 {
		return MatchScore{}, pkgerrors.NewValidationError("match weights must not all be zero")
	}

	// Complementarity: two directional comparisons averaged so that
	// "who benefits whom" is not double counted.
	helpTheyGiveYou := directional(queryVec.Needed, candidateVec.Possessed,
		queryVec.NeededNames, candidateVec.PossessedNames)
	helpYouGiveThem := directional(candidateVec.Needed, queryVec.Possessed,
		candidateVec.NeededNames, queryVec.PossessedNames)
	complementarity := 0.5*helpTheyGiveYou + 0.5*helpYouGiveThem

	// Focus overlap over the fixed-order indicator vectors. A profile
	// without focus tags degrades to 0 via the zero-vector rule.
	focusOverlap := Cosine(queryVec.Focus, candidateVec.Focus)

	// Industry overlap stays keyword-based: the vocabulary is open and
	// small per profile, so exact-tag overlap beats semantic similarity.
	industryOverlap := Jaccard(
		industrySet(queryProfile.IndustryTags()),
		industrySet(candidateProfile.IndustryTags()),
	)

	total := weights.Complementarity*complementarity +
		weights.Focus*focusOverlap +
		weights.Industry*industryOverlap

	return MatchScore{
		Score:           total,
		Complementarity: complementarity,
		HelpTheyGiveYou: helpTheyGiveYou,
		HelpYouGiveThem: helpYouGiveThem,
		FocusOverlap:    focusOverlap,
		IndustryOverlap: industryOverlap,
		MatchedSkills:   sortedIntersection(queryVec.NeededNames, candidateVec.PossessedNames),
		SkillsYouOffer:  sortedIntersection(candidateVec.NeededNames, queryVec.PossessedNames),
	}, nil
}

// sortedIntersection returns the common members of two sets in
// lexicographic order for deterministic output.
func sortedIntersection(a, b map[string]struct{}) []string {
	common := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; ok {
			common = append(common, k)
		}
	}
	sort.Strings(common)
	return common
}

func industrySet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

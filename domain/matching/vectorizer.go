// Package matching implements the matching engine: profile
// vectorization, weighted similarity scoring, and candidate ranking.
package matching

import (
	"knkt-backend/domain/profile"
)

// VectorBundle is the comparable form of a profile. It is derived on
// demand and never persisted.
type VectorBundle struct {
	// Possessed and Needed come straight from the profile's cached
	// embedding bundle; empty when the profile has never been indexed.
	Possessed profile.Vector
	Needed    profile.Vector

	// Focus is a binary indicator vector over profile.FocusAreaOrder.
	Focus []float64

	// Normalized skill-name sets for literal-match highlighting and
	// the lexical fallback comparison.
	PossessedNames map[string]struct{}
	NeededNames    map[string]struct{}
}

// Vectorize converts a profile into a VectorBundle. It is a pure read:
// cached embeddings are used if present and never recomputed here.
func Vectorize(p *profile.Profile) VectorBundle {
	bundle := VectorBundle{
		PossessedNames: nameSet(p.PossessedNames()),
		NeededNames:    nameSet(p.NeededNames()),
	}

	if p.Embeddings != nil {
		bundle.Possessed = p.Embeddings.PossessedVector
		bundle.Needed = p.Embeddings.NeededVector
	}

	focusSet := make(map[profile.FocusArea]struct{}, len(p.FocusAreas))
	for _, fa := range p.FocusAreas {
		focusSet[fa] = struct{}{}
	}

	bundle.Focus = make([]float64, len(profile.FocusAreaOrder))
	for i, fa := range profile.FocusAreaOrder {
		if _, ok := focusSet[fa]; ok {
			bundle.Focus[i] = 1.0
		}
	}

	return bundle
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

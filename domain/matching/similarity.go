package matching

import (
	"math"

	"knkt-backend/domain/profile"
)

// Cosine computes cosine similarity between two numeric vectors.
// Zero-magnitude input on either side yields 0, never NaN.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Jaccard computes intersection-over-union of two string sets.
// Either side empty yields 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

// directional measures how well the candidate's possessed side satisfies
// the query's needed side. It uses cosine similarity when both vectors
// are numeric embeddings of equal dimensionality, and falls back to
// Jaccard over the literal skill-name sets otherwise. The condition is
// detected per comparison: one profile may carry embeddings while the
// other does not.
func directional(need, possessed profile.Vector, neededNames, possessedNames map[string]struct{}) float64 {
	if need.Kind() == profile.VectorNumeric && possessed.Kind() == profile.VectorNumeric &&
		need.Len() == possessed.Len() {
		return Cosine(need.Numeric(), possessed.Numeric())
	}
	return Jaccard(neededNames, possessedNames)
}

package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"knkt-backend/domain/profile"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, Cosine([]float64{1, 1}, []float64{-1, -1}), 1e-9)
	})

	t.Run("zero magnitude yields zero not NaN", func(t *testing.T) {
		got := Cosine([]float64{0, 0, 0}, []float64{1, 2, 3})
		assert.Equal(t, 0.0, got)
	})

	t.Run("length mismatch yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{1, 2, 3}))
	})

	t.Run("empty input yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine(nil, []float64{1}))
	})
}

func TestJaccard(t *testing.T) {
	set := func(names ...string) map[string]struct{} {
		s := make(map[string]struct{}, len(names))
		for _, n := range names {
			s[n] = struct{}{}
		}
		return s
	}

	t.Run("identical sets", func(t *testing.T) {
		assert.InDelta(t, 1.0, Jaccard(set("a", "b"), set("a", "b")), 1e-9)
	})

	t.Run("partial overlap", func(t *testing.T) {
		// intersection 1, union 3
		assert.InDelta(t, 1.0/3.0, Jaccard(set("a", "b"), set("b", "c")), 1e-9)
	})

	t.Run("disjoint sets", func(t *testing.T) {
		assert.Equal(t, 0.0, Jaccard(set("a"), set("b")))
	})

	t.Run("either side empty yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Jaccard(set(), set("a")))
		assert.Equal(t, 0.0, Jaccard(set("a"), set()))
	})
}

func TestDirectional(t *testing.T) {
	names := func(ns ...string) map[string]struct{} {
		s := make(map[string]struct{}, len(ns))
		for _, n := range ns {
			s[n] = struct{}{}
		}
		return s
	}

	t.Run("numeric pair of equal dims uses cosine", func(t *testing.T) {
		need := profile.NumericVector([]float64{1, 0})
		possessed := profile.NumericVector([]float64{1, 0})
		got := directional(need, possessed, names("x"), names("y"))
		// Jaccard of the disjoint name sets would be 0.
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("dimension mismatch falls back to names", func(t *testing.T) {
		need := profile.NumericVector([]float64{1, 0})
		possessed := profile.NumericVector([]float64{1, 0, 0})
		got := directional(need, possessed, names("go"), names("go"))
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("one lexical side falls back to names", func(t *testing.T) {
		need := profile.NumericVector([]float64{1, 0})
		possessed := profile.LexicalVector([]string{"go"})
		got := directional(need, possessed, names("go", "react"), names("go"))
		assert.InDelta(t, 0.5, got, 1e-9)
	})
}

package profile

import (
	"encoding/json"
	"fmt"
	"time"
)

// VectorKind discriminates the two representations a skill vector can take.
type VectorKind int

const (
	// VectorEmpty means no signal is available for this slot.
	VectorEmpty VectorKind = iota
	// VectorNumeric is a semantic embedding produced by an embedding model.
	VectorNumeric
	// VectorLexical is the keyword fallback used when no embedding
	// provider is configured or the provider is unavailable.
	VectorLexical
)

// Vector is a tagged union: either a numeric embedding or a list of
// keywords. Comparison strategy is dispatched on the kind, never on
// runtime type inspection.
type Vector struct {
	nums  []float64
	words []string
}

// NumericVector creates a numeric embedding vector
func NumericVector(values []float64) Vector {
	return Vector{nums: values}
}

// LexicalVector creates a keyword vector
func LexicalVector(words []string) Vector {
	return Vector{words: words}
}

// Kind returns the vector's representation tag
func (v Vector) Kind() VectorKind {
	switch {
	case len(v.nums) > 0:
		return VectorNumeric
	case len(v.words) > 0:
		return VectorLexical
	default:
		return VectorEmpty
	}
}

// Numeric returns the embedding values; nil unless Kind is VectorNumeric
func (v Vector) Numeric() []float64 {
	return v.nums
}

// Lexical returns the keywords; nil unless Kind is VectorLexical
func (v Vector) Lexical() []string {
	return v.words
}

// Len returns the dimensionality (numeric) or keyword count (lexical)
func (v Vector) Len() int {
	if len(v.nums) > 0 {
		return len(v.nums)
	}
	return len(v.words)
}

// IsEmpty reports whether the vector carries no signal
func (v Vector) IsEmpty() bool {
	return len(v.nums) == 0 && len(v.words) == 0
}

// MarshalJSON renders the vector as a bare JSON array, matching the
// stored document shape: numbers for embeddings, strings for keywords.
func (v Vector) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case VectorNumeric:
		return json.Marshal(v.nums)
	case VectorLexical:
		return json.Marshal(v.words)
	default:
		return []byte("[]"), nil
	}
}

// UnmarshalJSON accepts either a numeric or a string array
func (v *Vector) UnmarshalJSON(data []byte) error {
	var nums []float64
	if err := json.Unmarshal(data, &nums); err == nil {
		if len(nums) == 0 {
			*v = Vector{}
			return nil
		}
		*v = Vector{nums: nums}
		return nil
	}

	var words []string
	if err := json.Unmarshal(data, &words); err == nil {
		*v = Vector{words: words}
		return nil
	}

	return fmt.Errorf("vector must be an array of numbers or strings")
}

// EmbeddingBundle holds the cached vectors derived from a profile's
// skills and project. It is regenerated whenever those fields change
// and is never partially stale once regeneration completes.
type EmbeddingBundle struct {
	PossessedVector Vector     `json:"possessed_vector"`
	NeededVector    Vector     `json:"needed_vector"`
	LastIndexedAt   *time.Time `json:"last_indexed_at,omitempty"`
}

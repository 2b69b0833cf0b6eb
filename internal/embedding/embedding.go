// Package embedding defines how document text becomes a vector.
package embedding

import "context"

// Embedder converts free text into a numeric vector. Implementations may need
// a preparation pass over the whole corpus before Embed is meaningful.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

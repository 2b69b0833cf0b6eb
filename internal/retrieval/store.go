package retrieval

import "context"

// Store is a document backend. Implementations must be safe for concurrent
// use; Index adds its own lock on top for whole-index replacement.
type Store interface {
	Upsert(ctx context.Context, docs []Document) error
	Query(ctx context.Context, text string, k int) ([]Match, error)
	// GetByMetadata returns documents whose metadata equals every filter
	// entry, in insertion order. A nil filter returns everything.
	GetByMetadata(ctx context.Context, filter map[string]any) ([]Document, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Name() string
}

// Stats describes the index contents.
type Stats struct {
	Documents int    `json:"total_students" yaml:"total_students"`
	Backend   string `json:"backend" yaml:"backend"`
}

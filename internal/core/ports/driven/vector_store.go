package driven

import (
	"context"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// Filter selects chunks by exact metadata match.
// An empty filter matches every chunk.
type Filter struct {
	Source string
}

// IsEmpty reports whether the filter matches everything
func (f Filter) IsEmpty() bool {
	return f.Source == ""
}

// GetOptions controls a paginated scan of the store
type GetOptions struct {
	Limit  int
	Offset int
	Filter Filter
}

// VectorStore is the id-keyed nearest-neighbour index holding chunk text,
// metadata and embeddings. Distances are 1 - cosine similarity.
type VectorStore interface {
	// Upsert inserts or replaces records by id.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to k nearest chunks ordered by ascending distance.
	// An empty store returns an empty slice, not an error.
	Query(ctx context.Context, vector []float32, k int) ([]domain.QueryMatch, error)

	// Delete removes chunks by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteWhere removes all chunks matching the filter.
	DeleteWhere(ctx context.Context, filter Filter) error

	// Get scans stored chunks in stable id order.
	Get(ctx context.Context, opts GetOptions) ([]domain.StoredChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset removes every chunk.
	Reset(ctx context.Context) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

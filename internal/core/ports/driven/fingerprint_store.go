package driven

import (
	"context"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// FingerprintStore persists the document fingerprint map.
// The map is read wholesale at sweep start and written wholesale after each
// document commit, so implementations must replace it atomically.
type FingerprintStore interface {
	// Load returns the stored map. A missing store yields an empty map and no error.
	Load(ctx context.Context) (domain.FingerprintMap, error)

	// Save replaces the stored map with the given one.
	Save(ctx context.Context, fingerprints domain.FingerprintMap) error

	// Clear removes every stored fingerprint.
	Clear(ctx context.Context) error
}

// DocumentSource lists the eligible documents of the corpus directory.
type DocumentSource interface {
	// List returns a fingerprint for every eligible document, ordered by name.
	List(ctx context.Context) ([]domain.Fingerprint, error)

	// Root returns the directory being listed.
	Root() string
}

package driving

import (
	"context"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// IngestionService keeps the vector store in step with the document directory
type IngestionService interface {
	// Sweep ingests every new or modified document once.
	// Returns domain.ErrSweepInProgress when another instance holds the sweep lock.
	Sweep(ctx context.Context) (*domain.SweepResult, error)

	// Rebuild clears the corpus and fingerprints, then sweeps from scratch
	Rebuild(ctx context.Context) (*domain.SweepResult, error)

	// LastSweep returns the result of the most recent sweep, or nil
	LastSweep() *domain.SweepResult
}

// Scheduler manages periodic sweep scheduling
type Scheduler interface {
	// Start begins the sweep scheduler
	Start(ctx context.Context) error

	// Stop stops the sweep scheduler and waits for it to exit
	Stop()
}

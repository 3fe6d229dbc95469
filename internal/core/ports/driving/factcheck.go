package driving

import (
	"context"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// FactCheckService answers fact-check queries against the corpus
type FactCheckService interface {
	// Check scores every claim of a message against the corpus.
	// Failures are reported inside the verdict, never as an error.
	Check(ctx context.Context, message string) *domain.Verdict

	// Stats summarises the indexed corpus
	Stats(ctx context.Context) (*domain.CorpusStats, error)

	// Overview returns the per-source breakdown of the corpus
	Overview(ctx context.Context) (*domain.CorpusOverview, error)

	// SourceDetail describes one indexed document.
	// Returns domain.ErrNotFound when no chunk carries that source.
	SourceDetail(ctx context.Context, source string) (*domain.SourceDetail, error)
}

package driven

import (
	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// EmbeddingFactory builds the embedding client selected at startup
type EmbeddingFactory interface {
	// CreateEmbeddingService returns nil, nil when settings name no provider;
	// domain.ErrInvalidProvider when the provider is unknown
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)
}

package ai

import (
	"fmt"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Ensure Factory implements EmbeddingFactory
var _ driven.EmbeddingFactory = (*Factory)(nil)

// Factory creates embedding clients from settings
type Factory struct{}

// NewFactory creates a new embedding factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	limit := WithRateLimit(settings.RequestsPerSecond)

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL, limit)
	case domain.AIProviderOllama:
		return NewOllamaEmbedding(settings.BaseURL, settings.Model, limit)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

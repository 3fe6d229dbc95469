package driven

import (
	"context"
)

// EmbeddingService turns text into fixed-dimension vectors.
// Output is deterministic for a fixed model version.
type EmbeddingService interface {
	// Embed generates embeddings for a batch of texts, one vector per text in order.
	// Callers control the batch size to bound peak memory.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single claim
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}

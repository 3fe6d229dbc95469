package ai

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Ensure OllamaEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OllamaEmbedding)(nil)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "all-minilm"
)

// Known dimensions for common Ollama embedding models
var ollamaModelDimensions = map[string]int{
	"all-minilm":        384,
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
}

// OllamaEmbedding implements EmbeddingService against a local Ollama server
// using the batch /api/embed endpoint.
type OllamaEmbedding struct {
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter

	mu         sync.Mutex
	dimensions int
}

// NewOllamaEmbedding creates a new Ollama embedding service
func NewOllamaEmbedding(baseURL, model string, opts ...Option) (driven.EmbeddingService, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}

	o := applyOptions(opts)
	return &OllamaEmbedding{
		model:      model,
		baseURL:    baseURL,
		client:     o.client,
		limiter:    o.limiter,
		dimensions: ollamaModelDimensions[model],
	}, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed generates embeddings for multiple texts, in input order
func (e *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp ollamaEmbedResponse
	status, err := postJSON(ctx, e.client, e.limiter, e.baseURL+"/api/embed", nil,
		ollamaEmbedRequest{Model: e.model, Input: texts}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("Ollama API error: %s", resp.Error)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("Ollama API returned status %d", status)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	// learn dimensions for models not in the table
	e.mu.Lock()
	if e.dimensions == 0 && len(resp.Embeddings[0]) > 0 {
		e.dimensions = len(resp.Embeddings[0])
	}
	e.mu.Unlock()

	return resp.Embeddings, nil
}

// EmbedQuery generates an embedding for a single claim
func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size, 0 until known
func (e *OllamaEmbedding) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Model returns the model name being used
func (e *OllamaEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the model is pulled and answering
func (e *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OllamaEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

package mocks

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing.
// Vectors are derived from a hash of the text unless overridden with SetVector.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string
	failNext   bool
	failAlways error
	vectors    map[string][]float32
	batchSizes []int
	queries    []string
	healthErr  error
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 8,
		model:      "mock-embedding-model",
		vectors:    make(map[string][]float32),
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.batchSizes = append(m.batchSizes, len(texts))

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.queries = append(m.queries, query)
	return m.vectorFor(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

func (m *MockEmbeddingService) takeFailure() error {
	if m.failAlways != nil {
		return m.failAlways
	}
	if m.failNext {
		m.failNext = false
		return context.DeadlineExceeded
	}
	return nil
}

func (m *MockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.generateEmbedding(text)
}

// generateEmbedding generates a deterministic embedding based on text hash
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

func (m *MockEmbeddingService) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

// SetFailure makes every call fail with err until cleared with nil
func (m *MockEmbeddingService) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAlways = err
}

func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.dimensions = dim
}

// SetHealthError makes HealthCheck return err
func (m *MockEmbeddingService) SetHealthError(err error) {
	m.healthErr = err
}

// SetVector pins the vector returned for an exact text
func (m *MockEmbeddingService) SetVector(text string, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vector
}

// BatchSizes returns the size of every Embed call in order
func (m *MockEmbeddingService) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batchSizes...)
}

// Queries returns every query passed to EmbedQuery in order
func (m *MockEmbeddingService) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

package domain

import "sync"

// RuntimeConfig tracks which backends were selected at startup and whether
// the fact checker is ready to serve. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	VectorBackend string // "sqlite" or "postgres"
	QueueBackend  string // "redis" or "memory"

	embeddingAvailable bool
	ready              bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(vectorBackend, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		VectorBackend: vectorBackend,
		QueueBackend:  queueBackend,
	}
}

// EmbeddingAvailable returns whether embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// Ready reports whether fact checks can be served.
// Requires a ready flag from startup and an embedding service.
func (c *RuntimeConfig) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready && c.embeddingAvailable
}

// SetReady marks startup validation as finished
func (c *RuntimeConfig) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

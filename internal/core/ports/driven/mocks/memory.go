package mocks

import (
	"sync"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var _ driven.MemorySampler = (*MockMemorySampler)(nil)

// MockMemorySampler returns scripted samples.
// Once the script runs out the last value repeats.
type MockMemorySampler struct {
	mu       sync.Mutex
	samples  []uint64
	last     uint64
	sampled  int
	reclaims int

	// AfterReclaim replaces the script once Reclaim is called, if set
	AfterReclaim []uint64
}

// NewMockMemorySampler creates a sampler reporting the given values in order
func NewMockMemorySampler(samples ...uint64) *MockMemorySampler {
	return &MockMemorySampler{samples: samples}
}

func (m *MockMemorySampler) Sample() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sampled++
	if len(m.samples) > 0 {
		m.last = m.samples[0]
		m.samples = m.samples[1:]
	}
	return m.last
}

func (m *MockMemorySampler) Reclaim() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reclaims++
	if m.AfterReclaim != nil {
		m.samples = append([]uint64(nil), m.AfterReclaim...)
	}
}

// SetUsage makes every following sample return bytes
func (m *MockMemorySampler) SetUsage(bytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = nil
	m.last = bytes
}

// Reclaims returns how many times Reclaim was called
func (m *MockMemorySampler) Reclaims() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reclaims
}

// Samples returns how many times Sample was called
func (m *MockMemorySampler) Samples() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampled
}

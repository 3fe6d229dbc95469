package mocks

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var (
	_ driven.FingerprintStore = (*MockFingerprintStore)(nil)
	_ driven.DocumentSource   = (*MockDocumentSource)(nil)
)

// MockFingerprintStore keeps the fingerprint map in memory
type MockFingerprintStore struct {
	mu    sync.Mutex
	data  domain.FingerprintMap
	saves int

	LoadErr error
	SaveErr error
}

// NewMockFingerprintStore creates an empty store
func NewMockFingerprintStore() *MockFingerprintStore {
	return &MockFingerprintStore{data: domain.FingerprintMap{}}
}

func (m *MockFingerprintStore) Load(ctx context.Context) (domain.FingerprintMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.data.Clone(), nil
}

func (m *MockFingerprintStore) Save(ctx context.Context, fingerprints domain.FingerprintMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = fingerprints.Clone()
	m.saves++
	return nil
}

func (m *MockFingerprintStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = domain.FingerprintMap{}
	return nil
}

// Get returns the stored fingerprint for a document name
func (m *MockFingerprintStore) Get(name string) (domain.Fingerprint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, ok := m.data[name]
	return fp, ok
}

// Saves returns how many times the map was written
func (m *MockFingerprintStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MockDocumentSource serves a fixed, mutable set of documents
type MockDocumentSource struct {
	mu   sync.Mutex
	root string
	docs map[string]domain.Fingerprint

	ListErr error
}

// NewMockDocumentSource creates an empty source rooted at root
func NewMockDocumentSource(root string) *MockDocumentSource {
	return &MockDocumentSource{root: root, docs: make(map[string]domain.Fingerprint)}
}

func (m *MockDocumentSource) List(ctx context.Context) ([]domain.Fingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	out := make([]domain.Fingerprint, 0, len(m.docs))
	for _, fp := range m.docs {
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockDocumentSource) Root() string {
	return m.root
}

// Put adds or replaces a document with the given size and modification time
func (m *MockDocumentSource) Put(name string, size int64, modified time.Time) domain.Fingerprint {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp := domain.NewFingerprint(filepath.Join(m.root, name), size, modified)
	m.docs[name] = fp
	return fp
}

// Remove deletes a document from the source
func (m *MockDocumentSource) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, name)
}

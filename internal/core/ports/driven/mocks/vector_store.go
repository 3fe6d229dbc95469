package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var _ driven.VectorStore = (*MockVectorStore)(nil)

// MockVectorStore is an in-memory VectorStore using brute-force cosine distance.
// It counts mutating calls so tests can assert idempotent sweeps.
type MockVectorStore struct {
	mu      sync.RWMutex
	records map[string]domain.VectorRecord

	upsertCalls   int
	upserted      int
	deleteCalls   int
	deleted       int
	deleteWhereFn int

	// Custom behavior hooks (optional)
	UpsertFn func(records []domain.VectorRecord) error
	QueryFn  func(vector []float32, k int) ([]domain.QueryMatch, error)
	GetFn    func(opts driven.GetOptions) ([]domain.StoredChunk, error)
	DeleteFn func(ids []string) error
	HealthFn func() error
}

// NewMockVectorStore creates an empty store
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		records: make(map[string]domain.VectorRecord),
	}
}

func (m *MockVectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if m.UpsertFn != nil {
		if err := m.UpsertFn(records); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls++
	for _, r := range records {
		m.records[r.ID] = r
		m.upserted++
	}
	return nil
}

func (m *MockVectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.QueryMatch, error) {
	if m.QueryFn != nil {
		return m.QueryFn(vector, k)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]domain.QueryMatch, 0, len(m.records))
	for _, r := range m.records {
		matches = append(matches, domain.QueryMatch{
			StoredChunk: toStored(r),
			Distance:    cosineDistance(vector, r.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Distance < matches[j].Distance
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MockVectorStore) Delete(ctx context.Context, ids []string) error {
	if m.DeleteFn != nil {
		if err := m.DeleteFn(ids); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCalls++
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			delete(m.records, id)
			m.deleted++
		}
	}
	return nil
}

func (m *MockVectorStore) DeleteWhere(ctx context.Context, filter driven.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteWhereFn++
	for id, r := range m.records {
		if filter.IsEmpty() || r.Metadata.Source == filter.Source {
			delete(m.records, id)
			m.deleted++
		}
	}
	return nil
}

func (m *MockVectorStore) Get(ctx context.Context, opts driven.GetOptions) ([]domain.StoredChunk, error) {
	if m.GetFn != nil {
		return m.GetFn(opts)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.records))
	for id, r := range m.records {
		if opts.Filter.IsEmpty() || r.Metadata.Source == opts.Filter.Source {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if opts.Offset >= len(ids) {
		return []domain.StoredChunk{}, nil
	}
	ids = ids[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}

	out := make([]domain.StoredChunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, toStored(m.records[id]))
	}
	return out, nil
}

func (m *MockVectorStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MockVectorStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]domain.VectorRecord)
	return nil
}

func (m *MockVectorStore) HealthCheck(ctx context.Context) error {
	if m.HealthFn != nil {
		return m.HealthFn()
	}
	return nil
}

func (m *MockVectorStore) Close() error {
	return nil
}

// Helper methods for testing

// Add stores a record directly without touching the call counters
func (m *MockVectorStore) Add(records ...domain.VectorRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
}

// Record returns a stored record by id
func (m *MockVectorStore) Record(id string) (domain.VectorRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}

// IDsForSource returns the sorted ids of every chunk of a source document
func (m *MockVectorStore) IDsForSource(source string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, r := range m.records {
		if r.Metadata.Source == source {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// UpsertCount returns the number of records written through Upsert
func (m *MockVectorStore) UpsertCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserted
}

// UpsertCalls returns the number of Upsert invocations
func (m *MockVectorStore) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upsertCalls
}

// DeleteCount returns the number of records removed by Delete or DeleteWhere
func (m *MockVectorStore) DeleteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deleted
}

// ResetCounters zeroes the call counters, keeping stored records
func (m *MockVectorStore) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls, m.upserted, m.deleteCalls, m.deleted, m.deleteWhereFn = 0, 0, 0, 0, 0
}

func toStored(r domain.VectorRecord) domain.StoredChunk {
	return domain.StoredChunk{ID: r.ID, Document: r.Text, Metadata: r.Metadata}
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var (
	_ driven.TextExtractor     = (*MockTextExtractor)(nil)
	_ driven.ExtractedDocument = (*MockDocument)(nil)
)

// MockTextExtractor serves documents registered by path
type MockTextExtractor struct {
	mu   sync.Mutex
	docs map[string]*MockDocument

	opened []string
}

// NewMockTextExtractor creates an extractor with no documents
func NewMockTextExtractor() *MockTextExtractor {
	return &MockTextExtractor{docs: make(map[string]*MockDocument)}
}

func (m *MockTextExtractor) Open(ctx context.Context, path string) (driven.ExtractedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opened = append(m.opened, path)
	doc, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, domain.ErrUnreadable)
	}
	return doc, nil
}

// SetDocument registers the pages served for path
func (m *MockTextExtractor) SetDocument(path string, info domain.DocumentInfo, pages ...string) *MockDocument {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info.PageCount == 0 {
		info.PageCount = len(pages)
	}
	doc := &MockDocument{info: info, pages: pages, failPages: map[int]bool{}}
	m.docs[path] = doc
	return doc
}

// Opened returns every path passed to Open in order
func (m *MockTextExtractor) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

// MockDocument is an in-memory paged document
type MockDocument struct {
	info      domain.DocumentInfo
	pages     []string
	failPages map[int]bool
	closed    bool

	// PageFn is called before each page read when set
	PageFn func(n int)
}

func (d *MockDocument) Info() domain.DocumentInfo {
	return d.info
}

func (d *MockDocument) Page(ctx context.Context, n int) (string, error) {
	if d.PageFn != nil {
		d.PageFn(n)
	}
	if d.failPages[n] {
		return "", fmt.Errorf("page %d: extraction failed", n)
	}
	if n < 1 || n > len(d.pages) {
		return "", fmt.Errorf("page %d out of range", n)
	}
	return d.pages[n-1], nil
}

func (d *MockDocument) Close() error {
	d.closed = true
	return nil
}

// FailPage makes page n return an error
func (d *MockDocument) FailPage(n int) {
	d.failPages[n] = true
}

// Closed reports whether Close was called
func (d *MockDocument) Closed() bool {
	return d.closed
}

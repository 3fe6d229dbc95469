package driven

import (
	"context"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// TextExtractor opens source documents for page-wise text extraction.
type TextExtractor interface {
	// Open prepares a document for reading. Failing to open means the
	// document is unreadable and is skipped.
	Open(ctx context.Context, path string) (ExtractedDocument, error)
}

// ExtractedDocument is an opened document read one page at a time.
// Pages are numbered from 1. A failing page does not invalidate the document.
type ExtractedDocument interface {
	// Info returns title, author and page count.
	Info() domain.DocumentInfo

	// Page returns the raw text of page n.
	Page(ctx context.Context, n int) (string, error)

	// Close releases any resources held for the document.
	Close() error
}

package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentSource = (*Source)(nil)

// pdfExt is the only eligible extension. It is matched case-sensitively so
// that A.pdf and A.PDF cannot both be ingested under the same stem.
const pdfExt = ".pdf"

// Source lists the PDFs directly inside a directory. Subdirectories are not walked.
type Source struct {
	root string
}

// NewSource creates a source for the directory at root.
func NewSource(root string) *Source {
	return &Source{root: root}
}

// Root returns the directory being listed.
func (s *Source) Root() string {
	return s.root
}

// List fingerprints every eligible document, ordered by name.
func (s *Source) List(ctx context.Context) ([]domain.Fingerprint, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}

	var out []domain.Fingerprint
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !isEligible(entry.Name()) || entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, domain.NewFingerprint(filepath.Join(s.root, entry.Name()), info.Size(), info.ModTime()))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// isEligible reports whether a file name is a visible PDF.
func isEligible(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return filepath.Ext(name) == pdfExt
}

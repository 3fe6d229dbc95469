// Package pdf extracts page text and document metadata from PDF files
// using the poppler command line tools pdfinfo and pdftotext.
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.TextExtractor     = (*Extractor)(nil)
	_ driven.ExtractedDocument = (*document)(nil)
)

// ErrPDFToolNotFound indicates poppler is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext or pdfinfo not found in PATH")

const (
	pdfInfoCmd   = "pdfinfo"
	pdfToTextCmd = "pdftotext"
)

// CommandRunner executes external commands. Tests substitute a fake.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Extractor opens PDFs through pdfinfo and reads pages with pdftotext.
type Extractor struct {
	runner CommandRunner
}

// New creates an extractor that shells out to poppler.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable reports whether the poppler tools are on PATH.
func CheckAvailable() error {
	for _, tool := range []string{pdfInfoCmd, pdfToTextCmd} {
		if _, err := exec.LookPath(tool); err != nil {
			return ErrPDFToolNotFound
		}
	}
	return nil
}

// InstallInstructions returns how to install the poppler tools.
func InstallInstructions() string {
	return `pdftotext and pdfinfo are required for PDF extraction.

Install poppler:
  macOS:         brew install poppler
  Ubuntu/Debian: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// Open reads the document metadata. A document pdfinfo cannot read is unreadable.
func (e *Extractor) Open(ctx context.Context, path string) (driven.ExtractedDocument, error) {
	out, err := e.runner.Run(ctx, pdfInfoCmd, "-enc", "UTF-8", path)
	if err != nil {
		return nil, fmt.Errorf("%w: pdfinfo %s: %v", domain.ErrUnreadable, path, err)
	}

	info, err := parseInfo(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnreadable, path, err)
	}

	return &document{runner: e.runner, path: path, info: info}, nil
}

// parseInfo reads the Title, Author and Pages fields of pdfinfo output.
func parseInfo(out []byte) (domain.DocumentInfo, error) {
	var info domain.DocumentInfo
	havePages := false

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Title":
			info.Title = value
		case "Author":
			info.Author = value
		case "Pages":
			n, err := strconv.Atoi(value)
			if err != nil {
				return info, fmt.Errorf("invalid page count %q", value)
			}
			info.PageCount = n
			havePages = true
		}
	}
	if err := scanner.Err(); err != nil {
		return info, err
	}
	if !havePages {
		return info, errors.New("page count missing from pdfinfo output")
	}
	return info, nil
}

// document is an opened PDF; each Page call runs pdftotext for one page.
type document struct {
	runner CommandRunner
	path   string
	info   domain.DocumentInfo
}

func (d *document) Info() domain.DocumentInfo {
	return d.info
}

func (d *document) Page(ctx context.Context, n int) (string, error) {
	if n < 1 || n > d.info.PageCount {
		return "", fmt.Errorf("page %d out of range 1..%d", n, d.info.PageCount)
	}

	page := strconv.Itoa(n)
	out, err := d.runner.Run(ctx, pdfToTextCmd, "-f", page, "-l", page, "-enc", "UTF-8", d.path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed on page %d: %w", n, err)
	}

	// pdftotext ends every page with a form feed
	return strings.TrimRight(string(out), "\f"), nil
}

// Close is a no-op; nothing stays open between page reads.
func (d *document) Close() error {
	return nil
}

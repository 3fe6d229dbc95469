package normalisers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*PDFNormaliser)(nil)

var (
	paginationPattern  = regexp.MustCompile(`Page \d+ of \d+`)
	percentPattern     = regexp.MustCompile(`\d+%`)
	viewControlPattern = regexp.MustCompile(`Actual Size|Page Fit|Page Width|Zoom`)
	urlPattern         = regexp.MustCompile(`https?://\S+`)
	bulletPattern      = regexp.MustCompile(`[◦•▪▫]`)
	whitespacePattern  = regexp.MustCompile(`[\s\v\p{Z}\x{85}]+`)
	disallowedPattern  = regexp.MustCompile(`[^\p{L}\p{N}_\s\v\p{Z}\x{85}.,;:!?()\-–—'"°%&]`)
)

// shortWords are the function words kept even though they are two runes or fewer.
var shortWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "be": {}, "by": {}, "do": {},
	"go": {}, "he": {}, "if": {}, "in": {}, "is": {}, "it": {}, "my": {}, "no": {},
	"of": {}, "on": {}, "or": {}, "so": {}, "to": {}, "up": {}, "us": {}, "we": {},
}

// PDFNormaliser strips the layout noise pdftotext leaves behind:
// page counters, viewer control labels, URLs, bullets and stray short tokens.
type PDFNormaliser struct{}

// NewPDFNormaliser creates a PDF text normaliser.
func NewPDFNormaliser() *PDFNormaliser {
	return &PDFNormaliser{}
}

// Name returns the normaliser name.
func (n *PDFNormaliser) Name() string {
	return "pdf"
}

// Normalise cleans raw page text. The rules run in a fixed order because
// later rules depend on earlier ones having removed digits and markers.
func (n *PDFNormaliser) Normalise(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, " ")
	}

	content = paginationPattern.ReplaceAllString(content, "")
	content = percentPattern.ReplaceAllString(content, "")
	content = viewControlPattern.ReplaceAllString(content, "")
	content = urlPattern.ReplaceAllString(content, "")
	content = bulletPattern.ReplaceAllString(content, "")

	content = whitespacePattern.ReplaceAllString(content, " ")
	content = disallowedPattern.ReplaceAllString(content, " ")

	words := strings.Fields(content)
	kept := words[:0]
	for _, word := range words {
		if keepWord(word) {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}

func keepWord(word string) bool {
	if utf8.RuneCountInString(word) > 2 {
		return true
	}
	_, ok := shortWords[strings.ToLower(word)]
	return ok
}

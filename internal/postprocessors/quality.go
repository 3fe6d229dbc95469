package postprocessors

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// QualityConfig configures the quality filter.
type QualityConfig struct {
	// MinChars is the minimum chunk length in runes
	MinChars int

	// MinWords is the minimum number of whitespace separated words
	MinWords int
}

// QualityFilter drops chunks that are too short to carry meaning and
// renumbers the survivors so positions stay contiguous.
type QualityFilter struct {
	config QualityConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*QualityFilter)(nil)

// NewQualityFilter creates a new quality filter with the given config.
func NewQualityFilter(config QualityConfig) *QualityFilter {
	return &QualityFilter{config: config}
}

// Process removes noise chunks.
func (q *QualityFilter) Process(chunks []driven.Chunk) []driven.Chunk {
	result := make([]driven.Chunk, 0, len(chunks))

	for _, chunk := range chunks {
		if !q.keep(chunk.Content) {
			continue
		}
		chunk.Position = len(result)
		result = append(result, chunk)
	}

	return result
}

func (q *QualityFilter) keep(content string) bool {
	if content == "" {
		return false
	}
	if utf8.RuneCountInString(content) < q.config.MinChars {
		return false
	}
	return len(strings.Fields(content)) >= q.config.MinWords
}

// Name returns the processor name.
func (q *QualityFilter) Name() string {
	return "quality-filter"
}

// Order returns 10 - runs after the chunker.
func (q *QualityFilter) Order() int {
	return 10
}

package postprocessors

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// ChunkSize is the window size in runes
	ChunkSize int

	// Overlap is the number of runes shared by consecutive windows
	Overlap int

	// MinChunkChars is the minimum trimmed length a chunk needs to be kept
	MinChunkChars int

	// MinChunkWords is the minimum number of words a chunk needs to be kept
	MinChunkWords int
}

// DefaultChunkConfig returns the ingestion defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:     400,
		Overlap:       50,
		MinChunkChars: 100,
		MinChunkWords: 10,
	}
}

// Validate checks that 0 < Overlap < ChunkSize.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap <= 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap must be in (0, %d), got %d", c.ChunkSize, c.Overlap)
	}
	if c.MinChunkChars < 0 || c.MinChunkWords < 0 {
		return fmt.Errorf("minimum chunk length must not be negative")
	}
	return nil
}

// Chunker splits content into overlapping windows that prefer to end on a
// sentence terminator or a space. It is the first processor (Order = 0).
// Windows are emitted trimmed; the quality filter drops the short ones.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a chunker, rejecting configs that could not advance.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Process splits every input chunk into windows.
// Positions continue across inputs so they stay contiguous.
func (c *Chunker) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	position := 0

	for _, chunk := range chunks {
		result = append(result, c.split(chunk.Content, chunk.StartOffset, &position)...)
	}

	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 0 - chunker should be first.
func (c *Chunker) Order() int {
	return 0
}

// split walks the rune slice with a strictly increasing cursor.
// Termination: every iteration either reaches the end or moves start forward.
func (c *Chunker) split(content string, baseOffset int, position *int) []driven.Chunk {
	if len([]rune(strings.TrimSpace(content))) < c.config.MinChunkChars {
		return nil
	}

	text := []rune(content)
	n := len(text)
	size := c.config.ChunkSize

	var chunks []driven.Chunk
	start := 0

	for start < n {
		end := start + size
		if end > n {
			end = n
		}

		if end < n && !unicode.IsSpace(text[end]) {
			end = c.breakPoint(text[start:end], start, end)
		}

		chunks = append(chunks, driven.Chunk{
			Content:     strings.TrimSpace(string(text[start:end])),
			Position:    *position,
			StartOffset: baseOffset + start,
			EndOffset:   baseOffset + end,
		})
		*position++

		if end >= n {
			break
		}

		next := end - c.config.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// breakPoint returns where the window should end. A terminator past a third
// of the window wins, then a space past half of it, else the hard cut.
func (c *Chunker) breakPoint(window []rune, start, end int) int {
	size := c.config.ChunkSize

	if i := lastIndexFunc(window, isTerminator); i > size/3 {
		return start + i + 1
	}
	if j := lastIndexFunc(window, func(r rune) bool { return r == ' ' }); j > size/2 {
		return start + j
	}
	return end
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func lastIndexFunc(runes []rune, f func(rune) bool) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if f(runes[i]) {
			return i
		}
	}
	return -1
}

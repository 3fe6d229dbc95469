package postprocessors

import (
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains multiple post-processors in order, starting with a Chunker.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order.
// Input is the normalized document text; offsets are counted in runes.
func (p *Pipeline) Process(content string) []driven.Chunk {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	chunks := []driven.Chunk{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   utf8.RuneCountInString(content),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}

	return chunks
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// NewDefaultPipeline creates the chunker and quality filter pair used for ingestion.
func NewDefaultPipeline(config ChunkConfig) (*Pipeline, error) {
	chunker, err := NewChunker(config)
	if err != nil {
		return nil, err
	}

	p := NewPipeline()
	p.Add(chunker)
	p.Add(NewQualityFilter(QualityConfig{
		MinChars: config.MinChunkChars,
		MinWords: config.MinChunkWords,
	}))
	return p, nil
}

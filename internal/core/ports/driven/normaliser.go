package driven

// Normaliser turns raw extracted text into clean text for chunking.
// Implementations are pure: the same input always yields the same output.
type Normaliser interface {
	// Normalise cleans raw content. Empty or whitespace-only input yields "".
	Normalise(content string) string

	// Name returns the normaliser name for logging.
	Name() string
}

// PostProcessor applies post-processing to document content or chunks.
// Processors form a pipeline: Chunker -> QualityFilter.
type PostProcessor interface {
	// Process applies post-processing to content chunks.
	// The first processor (Chunker) receives a single chunk with the full content.
	Process(chunks []Chunk) []Chunk

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	Order() int
}

// Chunk is a passage of document text with its window in rune offsets.
type Chunk struct {
	// Content is the trimmed text of the chunk
	Content string

	// Position is the chunk index within the document (0-based, contiguous)
	Position int

	// StartOffset is the rune offset where the window began
	StartOffset int

	// EndOffset is the rune offset where the window ended (exclusive)
	EndOffset int
}

// PostProcessorPipeline chains multiple post-processors in order.
type PostProcessorPipeline interface {
	// Process turns normalized document text into chunks ready for embedding.
	Process(content string) []Chunk

	// Add adds a processor to the pipeline.
	Add(processor PostProcessor)

	// List returns processor names in order.
	List() []string
}

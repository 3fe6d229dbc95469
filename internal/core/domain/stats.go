package domain

// CorpusStats summarises the indexed corpus
type CorpusStats struct {
	TotalChunks   int      `json:"total_chunks"`
	UniqueSources int      `json:"unique_sources"`
	Sources       []string `json:"sources"`
}

// SourceDetail describes one indexed document
type SourceDetail struct {
	Source        string `json:"source"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	ProcessedDate string `json:"processed_date"`
	ChunkCount    int    `json:"chunk_count"`
}

// CorpusOverview is the per-source breakdown of the corpus
type CorpusOverview struct {
	TotalChunks   int            `json:"total_chunks"`
	UniqueSources int            `json:"unique_sources"`
	UniqueAuthors int            `json:"unique_authors"`
	Sources       []SourceDetail `json:"sources_detail"`
	Authors       []string       `json:"authors"`
}

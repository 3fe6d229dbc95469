package domain

import (
	"fmt"
	"time"
)

// UnknownAuthor is stored when the document carries no author metadata.
const UnknownAuthor = "Unknown"

// ChunkMetadata is the metadata stored next to every chunk in the vector store.
type ChunkMetadata struct {
	Source        string `json:"source"`
	ChunkIndex    int    `json:"chunk_id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	ProcessedDate string `json:"processed_date"`
	ChunkLength   int    `json:"chunk_length"`
}

// ChunkRecord is a single passage of a document version, ready for upsert.
type ChunkRecord struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkID returns the store id for the index-th chunk of a document.
func ChunkID(stem string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", stem, index)
}

// NewChunkRecord creates a chunk record for a document.
// Missing title defaults to the document stem, missing author to UnknownAuthor.
func NewChunkRecord(doc Fingerprint, info DocumentInfo, index int, text string, processedAt time.Time) ChunkRecord {
	title := info.Title
	if title == "" {
		title = doc.Stem()
	}
	author := info.Author
	if author == "" {
		author = UnknownAuthor
	}

	return ChunkRecord{
		ID:   ChunkID(doc.Stem(), index),
		Text: text,
		Metadata: ChunkMetadata{
			Source:        doc.Name,
			ChunkIndex:    index,
			Title:         title,
			Author:        author,
			ProcessedDate: processedAt.Format(time.RFC3339),
			ChunkLength:   len([]rune(text)),
		},
	}
}

// VectorRecord pairs a chunk with its embedding for storage.
type VectorRecord struct {
	ChunkRecord
	Vector []float32 `json:"-"`
}

// StoredChunk is a chunk read back from the vector store.
type StoredChunk struct {
	ID       string        `json:"id"`
	Document string        `json:"document"`
	Metadata ChunkMetadata `json:"metadata"`
}

// QueryMatch is one nearest-neighbour result. Smaller distance means more similar.
type QueryMatch struct {
	StoredChunk
	Distance float64 `json:"distance"`
}

// DocumentInfo holds document-level metadata reported by the extractor.
type DocumentInfo struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	PageCount int    `json:"page_count"`
}

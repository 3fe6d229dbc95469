package domain

import "time"

// DocumentStage is a step of the per-document ingestion state machine.
// Stages are ordered; a document that fails stays at the last stage it reached.
type DocumentStage int

const (
	StageDetectedChanged DocumentStage = iota
	StageStaleChunksRemoved
	StageTextExtracted
	StageNormalized
	StageChunked
	StageEmbeddedUpserted
	StageFingerprintCommitted
)

var stageNames = map[DocumentStage]string{
	StageDetectedChanged:      "DETECTED_CHANGED",
	StageStaleChunksRemoved:   "STALE_CHUNKS_REMOVED",
	StageTextExtracted:        "TEXT_EXTRACTED",
	StageNormalized:           "NORMALIZED",
	StageChunked:              "CHUNKED",
	StageEmbeddedUpserted:     "EMBEDDED_UPSERTED",
	StageFingerprintCommitted: "FINGERPRINT_COMMITTED",
}

// String returns the stage name
func (s DocumentStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText encodes the stage as its name
func (s DocumentStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Next returns the following stage. The final stage has no successor.
func (s DocumentStage) Next() DocumentStage {
	if s >= StageFingerprintCommitted {
		return StageFingerprintCommitted
	}
	return s + 1
}

// Completed reports whether the document was fully ingested
func (s DocumentStage) Completed() bool {
	return s == StageFingerprintCommitted
}

// DocumentResult records how far one document got during a sweep
type DocumentResult struct {
	Name          string        `json:"name"`
	Stage         DocumentStage `json:"stage"`
	ChunksRemoved int           `json:"chunks_removed"`
	ChunksStored  int           `json:"chunks_stored"`
	PagesRead     int           `json:"pages_read"`
	PagesSkipped  int           `json:"pages_skipped"`
	Skipped       bool          `json:"skipped"`
	Error         string        `json:"error,omitempty"`
}

// SweepStats holds counters for one sweep
type SweepStats struct {
	DocumentsScanned   int `json:"documents_scanned"`
	DocumentsChanged   int `json:"documents_changed"`
	DocumentsProcessed int `json:"documents_processed"`
	DocumentsSkipped   int `json:"documents_skipped"`
	DocumentsFailed    int `json:"documents_failed"`
	DocumentsDeferred  int `json:"documents_deferred"`
	DocumentsPruned    int `json:"documents_pruned"`
	ChunksUpserted     int `json:"chunks_upserted"`
	ChunksRemoved      int `json:"chunks_removed"`
}

// SweepResult represents the outcome of one sweep
type SweepResult struct {
	Success     bool             `json:"success"`
	Stats       SweepStats       `json:"stats"`
	Documents   []DocumentResult `json:"documents"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	Duration    float64          `json:"duration_seconds"`
}

package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Fingerprint is the lightweight signature of a source document used to
// detect changes without re-reading its content.
type Fingerprint struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"` // Unix seconds with sub-second precision
	Path     string  `json:"path"`
}

// NewFingerprint builds a fingerprint from file attributes.
func NewFingerprint(path string, size int64, modTime time.Time) Fingerprint {
	return Fingerprint{
		Name:     filepath.Base(path),
		Size:     size,
		Modified: float64(modTime.Unix()) + float64(modTime.Nanosecond())/1e9,
		Path:     path,
	}
}

// Stem returns the document name without its extension.
func (f Fingerprint) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Matches reports whether two fingerprints describe the same document version.
// Only size and modification time are compared; the path may move.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Size == other.Size && f.Modified == other.Modified
}

// FingerprintMap is the persisted document-name to fingerprint mapping.
type FingerprintMap map[string]Fingerprint

// Clone returns a shallow copy safe for independent mutation.
func (m FingerprintMap) Clone() FingerprintMap {
	out := make(FingerprintMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ChangeSet is the outcome of comparing the document directory with the
// stored fingerprints.
type ChangeSet struct {
	// Changed lists new or modified documents selected for this sweep
	Changed []Fingerprint

	// Conflicts lists documents whose stem, and so whose chunk ids, belong to
	// another document. They are never ingested.
	Conflicts []Fingerprint

	// Deferred lists documents that were not considered because of the per-sweep cap
	Deferred []Fingerprint

	// Missing lists fingerprints whose documents no longer exist
	Missing []Fingerprint

	// Scanned is the number of eligible documents found
	Scanned int
}

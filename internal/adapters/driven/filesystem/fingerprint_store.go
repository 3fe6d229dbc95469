package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore keeps the fingerprint map in a JSON file.
// Save writes a temp file in the same directory, syncs it and renames it over
// the old file, so a crash leaves either the old or the new map.
type FingerprintStore struct {
	path string
	mu   sync.Mutex
}

// NewFingerprintStore creates a store backed by the file at path.
func NewFingerprintStore(path string) *FingerprintStore {
	return &FingerprintStore{path: path}
}

// Path returns the backing file path.
func (s *FingerprintStore) Path() string {
	return s.path
}

// Load reads the map. A missing file is an empty map.
func (s *FingerprintStore) Load(ctx context.Context) (domain.FingerprintMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.FingerprintMap{}, nil
		}
		return nil, fmt.Errorf("reading fingerprints: %w", err)
	}
	if len(data) == 0 {
		return domain.FingerprintMap{}, nil
	}

	var out domain.FingerprintMap
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing fingerprints %s: %w", s.path, err)
	}
	if out == nil {
		out = domain.FingerprintMap{}
	}
	return out, nil
}

// Save atomically replaces the file with the given map.
func (s *FingerprintStore) Save(ctx context.Context, fingerprints domain.FingerprintMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fingerprints == nil {
		fingerprints = domain.FingerprintMap{}
	}
	data, err := json.MarshalIndent(fingerprints, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding fingerprints: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating fingerprint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing fingerprints: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("syncing fingerprints: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing fingerprints: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replacing fingerprints: %w", err)
	}
	return nil
}

// Clear deletes the file.
func (s *FingerprintStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing fingerprints: %w", err)
	}
	return nil
}

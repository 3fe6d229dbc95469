package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// ChangeTracker decides which documents need ingesting by comparing the
// document directory with the stored fingerprints.
//
// The map is read wholesale by ListChanged and written wholesale by every
// Commit, so a document's fingerprint only changes after its chunks are stored.
type ChangeTracker struct {
	store   driven.FingerprintStore
	source  driven.DocumentSource
	maxDocs int
	logger  *slog.Logger

	mu      sync.Mutex
	current domain.FingerprintMap
}

// ChangeTrackerConfig holds dependencies for ChangeTracker.
type ChangeTrackerConfig struct {
	Store  driven.FingerprintStore
	Source driven.DocumentSource

	// MaxDocsPerSweep caps the changed documents handed to one sweep (0 = unlimited)
	MaxDocsPerSweep int

	Logger *slog.Logger
}

// NewChangeTracker creates a new change tracker.
func NewChangeTracker(cfg ChangeTrackerConfig) *ChangeTracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ChangeTracker{
		store:   cfg.Store,
		source:  cfg.Source,
		maxDocs: cfg.MaxDocsPerSweep,
		logger:  logger,
	}
}

// ListChanged returns the new or modified documents in name order.
// A missing or unreadable fingerprint store is treated as empty.
// Changed documents beyond the per-sweep cap are reported as deferred.
func (t *ChangeTracker) ListChanged(ctx context.Context) (*domain.ChangeSet, error) {
	stored := t.load(ctx)

	docs, err := t.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", t.source.Root(), err)
	}

	changes := &domain.ChangeSet{
		Scanned: len(docs),
	}

	owners := stemOwners(docs, stored)
	present := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		present[doc.Name] = struct{}{}

		if owner := owners[doc.Stem()]; owner != doc.Name {
			t.logger.Error("document shares chunk ids with another document, not ingesting",
				"document", doc.Name,
				"owner", owner,
				"stem", doc.Stem(),
			)
			changes.Conflicts = append(changes.Conflicts, doc)
			continue
		}

		prev, known := stored[doc.Name]
		if known && prev.Matches(doc) {
			continue
		}

		if t.maxDocs > 0 && len(changes.Changed) >= t.maxDocs {
			changes.Deferred = append(changes.Deferred, doc)
			continue
		}
		changes.Changed = append(changes.Changed, doc)
	}

	for name, fp := range stored {
		if _, ok := present[name]; !ok {
			changes.Missing = append(changes.Missing, fp)
		}
	}
	sortFingerprints(changes.Missing)

	t.mu.Lock()
	t.current = stored
	t.mu.Unlock()

	return changes, nil
}

// Commit records a document as ingested.
// On a write failure the in-memory map is rolled back so the document is retried.
func (t *ChangeTracker) Commit(ctx context.Context, fp domain.Fingerprint) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		t.current = t.load(ctx)
	}

	prev, had := t.current[fp.Name]
	t.current[fp.Name] = fp

	if err := t.store.Save(ctx, t.current.Clone()); err != nil {
		if had {
			t.current[fp.Name] = prev
		} else {
			delete(t.current, fp.Name)
		}
		return fmt.Errorf("failed to commit fingerprint for %s: %w", fp.Name, err)
	}
	return nil
}

// Forget removes the fingerprint of a document that no longer exists.
func (t *ChangeTracker) Forget(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		t.current = t.load(ctx)
	}

	prev, had := t.current[name]
	if !had {
		return nil
	}
	delete(t.current, name)

	if err := t.store.Save(ctx, t.current.Clone()); err != nil {
		t.current[name] = prev
		return fmt.Errorf("failed to forget fingerprint for %s: %w", name, err)
	}
	return nil
}

// Reset clears every stored fingerprint so the next sweep sees all documents as new.
func (t *ChangeTracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear fingerprints: %w", err)
	}
	t.current = domain.FingerprintMap{}
	return nil
}

func (t *ChangeTracker) load(ctx context.Context) domain.FingerprintMap {
	stored, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn("fingerprint store unreadable, treating as empty", "error", err)
		return domain.FingerprintMap{}
	}
	if stored == nil {
		return domain.FingerprintMap{}
	}
	return stored
}

// stemOwners assigns each stem to one document. A document that already has a
// stored fingerprint keeps its stem; otherwise the first listed document wins.
func stemOwners(docs []domain.Fingerprint, stored domain.FingerprintMap) map[string]string {
	owners := make(map[string]string, len(docs))
	for _, doc := range docs {
		if _, ok := stored[doc.Name]; !ok {
			continue
		}
		if _, taken := owners[doc.Stem()]; !taken {
			owners[doc.Stem()] = doc.Name
		}
	}
	for _, doc := range docs {
		if _, taken := owners[doc.Stem()]; !taken {
			owners[doc.Stem()] = doc.Name
		}
	}
	return owners
}

func sortFingerprints(fps []domain.Fingerprint) {
	sort.Slice(fps, func(i, j int) bool { return fps[i].Name < fps[j].Name })
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-factcheck/internal/runtime"
)

// Ensure IngestionService implements the driving port
var _ driving.IngestionService = (*IngestionService)(nil)

// SweepLockName is the distributed lock guarding sweeps across instances.
const SweepLockName = "sweep"

// IngestionOptions bounds the work and memory of one sweep.
type IngestionOptions struct {
	MaxFileSizeBytes  int64 // Documents larger than this are skipped (0 = no limit)
	MaxPagesPerDoc    int   // Pages read per document (0 = all)
	MemoryCheckPages  int   // Memory checkpoint interval in pages
	StaleScanPageSize int   // Page size when scanning a document's old chunks
	DeleteBatchSize   int   // Chunk ids per delete call
	UpsertBatchSize   int   // Chunks per upsert call
	EmbedBatchSize    int   // Texts per embedding call
	MemoryAbortSweep  bool  // Stop the whole sweep when the memory ceiling is hit
	PruneMissing      bool  // Remove chunks and fingerprints of deleted documents
	LockTTL           time.Duration
}

// DefaultIngestionOptions returns the defaults used by the service.
func DefaultIngestionOptions() IngestionOptions {
	return IngestionOptions{
		MaxFileSizeBytes:  50 * 1024 * 1024,
		MaxPagesPerDoc:    100,
		MemoryCheckPages:  10,
		StaleScanPageSize: 50,
		DeleteBatchSize:   100,
		UpsertBatchSize:   5,
		EmbedBatchSize:    2,
		LockTTL:           30 * time.Minute,
	}
}

// withDefaults fills zero batch sizes so loops always advance.
func (o IngestionOptions) withDefaults() IngestionOptions {
	d := DefaultIngestionOptions()
	if o.MemoryCheckPages <= 0 {
		o.MemoryCheckPages = d.MemoryCheckPages
	}
	if o.StaleScanPageSize <= 0 {
		o.StaleScanPageSize = d.StaleScanPageSize
	}
	if o.DeleteBatchSize <= 0 {
		o.DeleteBatchSize = d.DeleteBatchSize
	}
	if o.UpsertBatchSize <= 0 {
		o.UpsertBatchSize = d.UpsertBatchSize
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = d.EmbedBatchSize
	}
	if o.LockTTL <= 0 {
		o.LockTTL = d.LockTTL
	}
	return o
}

// IngestionService runs the per-document pipeline:
//
//	DETECTED_CHANGED → STALE_CHUNKS_REMOVED → TEXT_EXTRACTED → NORMALIZED →
//	CHUNKED → EMBEDDED_UPSERTED → FINGERPRINT_COMMITTED
//
// A failure stops only the current document. The fingerprint is committed
// last, so an interrupted document is detected as changed on the next sweep
// and reprocessed from scratch.
type IngestionService struct {
	tracker    *ChangeTracker
	store      driven.VectorStore
	extractor  driven.TextExtractor
	normaliser driven.Normaliser
	pipeline   driven.PostProcessorPipeline
	services   *runtime.Services
	memory     *MemorySupervisor
	lock       driven.DistributedLock
	gate       *sync.Mutex
	opts       IngestionOptions
	logger     *slog.Logger
	now        func() time.Time

	resultMu sync.RWMutex
	last     *domain.SweepResult
}

// IngestionServiceConfig holds dependencies for IngestionService.
type IngestionServiceConfig struct {
	Tracker    *ChangeTracker
	Store      driven.VectorStore
	Extractor  driven.TextExtractor
	Normaliser driven.Normaliser
	Pipeline   driven.PostProcessorPipeline
	Services   *runtime.Services
	Memory     *MemorySupervisor
	Lock       driven.DistributedLock // Optional: guards sweeps across instances
	Gate       *sync.Mutex            // Corpus gate shared with the fact checker
	Options    IngestionOptions
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(cfg IngestionServiceConfig) *IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := cfg.Gate
	if gate == nil {
		gate = &sync.Mutex{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &IngestionService{
		tracker:    cfg.Tracker,
		store:      cfg.Store,
		extractor:  cfg.Extractor,
		normaliser: cfg.Normaliser,
		pipeline:   cfg.Pipeline,
		services:   cfg.Services,
		memory:     cfg.Memory,
		lock:       cfg.Lock,
		gate:       gate,
		opts:       cfg.Options.withDefaults(),
		logger:     logger,
		now:        now,
	}
}

// Sweep ingests every new or modified document once.
func (s *IngestionService) Sweep(ctx context.Context) (*domain.SweepResult, error) {
	return s.run(ctx, false)
}

// Rebuild clears the vector store and fingerprints, then sweeps.
func (s *IngestionService) Rebuild(ctx context.Context) (*domain.SweepResult, error) {
	return s.run(ctx, true)
}

// LastSweep returns the result of the most recent sweep, or nil.
func (s *IngestionService) LastSweep() *domain.SweepResult {
	s.resultMu.RLock()
	defer s.resultMu.RUnlock()
	if s.last == nil {
		return nil
	}
	result := *s.last
	return &result
}

func (s *IngestionService) run(ctx context.Context, rebuild bool) (*domain.SweepResult, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, SweepLockName, s.opts.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		if !acquired {
			s.logger.Info("sweep lock held by another instance, skipping")
			return nil, domain.ErrSweepInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), SweepLockName); err != nil {
				s.logger.Warn("failed to release sweep lock", "error", err)
			}
		}()
	}

	startTime := s.now()
	result := &domain.SweepResult{StartedAt: startTime, Documents: []domain.DocumentResult{}}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return s.finish(result, fmt.Errorf("embedding service not configured: %w", domain.ErrNotReady))
	}

	if err := s.memory.Check(CheckpointStartup); err != nil && s.opts.MemoryAbortSweep {
		return s.finish(result, err)
	}

	if rebuild {
		s.logger.Info("rebuilding corpus")
		if err := s.store.Reset(ctx); err != nil {
			return s.finish(result, fmt.Errorf("failed to reset vector store: %w", err))
		}
		if err := s.tracker.Reset(ctx); err != nil {
			return s.finish(result, err)
		}
	}

	changes, err := s.tracker.ListChanged(ctx)
	if err != nil {
		return s.finish(result, err)
	}

	result.Stats.DocumentsScanned = changes.Scanned
	result.Stats.DocumentsChanged = len(changes.Changed)
	result.Stats.DocumentsDeferred = len(changes.Deferred)

	s.logger.Info("starting sweep",
		"root", s.tracker.source.Root(),
		"scanned", changes.Scanned,
		"changed", len(changes.Changed),
		"deferred", len(changes.Deferred),
		"conflicts", len(changes.Conflicts),
	)

	for _, doc := range changes.Conflicts {
		result.Stats.DocumentsSkipped++
		result.Documents = append(result.Documents, domain.DocumentResult{
			Name:    doc.Name,
			Stage:   domain.StageDetectedChanged,
			Skipped: true,
			Error:   fmt.Errorf("%w: %s", domain.ErrStemConflict, doc.Stem()).Error(),
		})
	}

	var sweepErr error
	for i, doc := range changes.Changed {
		if err := ctx.Err(); err != nil {
			sweepErr = err
			break
		}
		s.extendLock(ctx)

		docResult, err := s.processDocument(ctx, embedder, doc)
		result.Documents = append(result.Documents, docResult)
		result.Stats.ChunksRemoved += docResult.ChunksRemoved

		switch {
		case err == nil:
			result.Stats.DocumentsProcessed++
			result.Stats.ChunksUpserted += docResult.ChunksStored
			s.logger.Info("document ingested",
				"document", doc.Name,
				"chunks", docResult.ChunksStored,
				"pages_read", docResult.PagesRead,
				"pages_skipped", docResult.PagesSkipped,
			)
		case docResult.Skipped:
			result.Stats.DocumentsSkipped++
			s.logger.Warn("document skipped", "document", doc.Name, "stage", docResult.Stage, "reason", err)
		default:
			result.Stats.DocumentsFailed++
			result.Stats.ChunksUpserted += docResult.ChunksStored
			s.logger.Error("document failed", "document", doc.Name, "stage", docResult.Stage, "error", err)
		}

		if errors.Is(err, domain.ErrMemoryCeiling) && s.opts.MemoryAbortSweep {
			result.Stats.DocumentsDeferred += len(changes.Changed) - i - 1
			sweepErr = err
			break
		}
	}

	if sweepErr == nil && s.opts.PruneMissing {
		for _, missing := range changes.Missing {
			if err := s.prune(ctx, missing); err != nil {
				s.logger.Warn("failed to prune deleted document", "document", missing.Name, "error", err)
				continue
			}
			result.Stats.DocumentsPruned++
		}
	}

	return s.finish(result, sweepErr)
}

// finish stamps timing and remembers the result.
func (s *IngestionService) finish(result *domain.SweepResult, err error) (*domain.SweepResult, error) {
	result.CompletedAt = s.now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt).Seconds()
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
		s.logger.Error("sweep failed", "duration_seconds", result.Duration, "error", err)
	} else {
		s.logger.Info("sweep completed",
			"duration_seconds", result.Duration,
			"processed", result.Stats.DocumentsProcessed,
			"skipped", result.Stats.DocumentsSkipped,
			"failed", result.Stats.DocumentsFailed,
			"deferred", result.Stats.DocumentsDeferred,
			"pruned", result.Stats.DocumentsPruned,
			"chunks_upserted", result.Stats.ChunksUpserted,
			"chunks_removed", result.Stats.ChunksRemoved,
		)
	}

	s.resultMu.Lock()
	s.last = result
	s.resultMu.Unlock()

	return result, err
}

func (s *IngestionService) extendLock(ctx context.Context) {
	if s.lock == nil {
		return
	}
	if err := s.lock.Extend(ctx, SweepLockName, s.opts.LockTTL); err != nil {
		s.logger.Warn("failed to extend sweep lock", "error", err)
	}
}

// processDocument walks one document through the state machine.
// The returned result carries the last stage reached.
func (s *IngestionService) processDocument(
	ctx context.Context,
	embedder driven.EmbeddingService,
	doc domain.Fingerprint,
) (domain.DocumentResult, error) {
	res := domain.DocumentResult{Name: doc.Name, Stage: domain.StageDetectedChanged}

	fail := func(err error, skipped bool) (domain.DocumentResult, error) {
		res.Skipped = skipped
		res.Error = err.Error()
		return res, err
	}

	if err := s.memory.Check(CheckpointDocument); err != nil {
		return fail(err, false)
	}

	// Stage: remove chunks of the previous version
	removed, err := s.removeStale(ctx, doc.Name)
	res.ChunksRemoved = removed
	if err != nil {
		return fail(err, false)
	}
	res.Stage = domain.StageStaleChunksRemoved

	// Stage: extract
	raw, info, err := s.extract(ctx, doc, &res)
	if err != nil {
		return fail(err, isSkip(err))
	}
	res.Stage = domain.StageTextExtracted

	// Stage: normalise
	clean := s.normaliser.Normalise(raw)
	if clean == "" {
		return fail(fmt.Errorf("%s: %w after normalisation", doc.Name, domain.ErrNoText), true)
	}
	res.Stage = domain.StageNormalized

	// Stage: chunk
	chunks := s.pipeline.Process(clean)
	if len(chunks) == 0 {
		return fail(fmt.Errorf("%s: %w", doc.Name, domain.ErrNoChunks), true)
	}
	res.Stage = domain.StageChunked

	// Stage: embed and upsert in bounded batches
	processedAt := s.now()
	records := make([]domain.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.NewChunkRecord(doc, info, i, c.Content, processedAt)
	}
	stored, err := s.embedAndUpsert(ctx, embedder, records)
	res.ChunksStored = stored
	if err != nil {
		return fail(err, false)
	}
	res.Stage = domain.StageEmbeddedUpserted

	// Stage: commit fingerprint
	if err := s.tracker.Commit(ctx, doc); err != nil {
		return fail(err, false)
	}
	res.Stage = domain.StageFingerprintCommitted

	return res, nil
}

// removeStale deletes every chunk whose source is the document.
// Ids are collected page by page first so deletions cannot shift the scan,
// then deleted in batches, then a filtered delete catches anything left.
func (s *IngestionService) removeStale(ctx context.Context, source string) (int, error) {
	filter := driven.Filter{Source: source}

	var ids []string
	for offset := 0; ; offset += s.opts.StaleScanPageSize {
		page, err := s.store.Get(ctx, driven.GetOptions{
			Limit:  s.opts.StaleScanPageSize,
			Offset: offset,
			Filter: filter,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to scan stale chunks of %s: %w", source, err)
		}
		for _, chunk := range page {
			ids = append(ids, chunk.ID)
		}
		if len(page) < s.opts.StaleScanPageSize {
			break
		}
	}

	for start := 0; start < len(ids); start += s.opts.DeleteBatchSize {
		end := min(start+s.opts.DeleteBatchSize, len(ids))
		if err := s.store.Delete(ctx, ids[start:end]); err != nil {
			return start, fmt.Errorf("failed to delete stale chunks of %s: %w", source, err)
		}
	}

	if err := s.store.DeleteWhere(ctx, filter); err != nil {
		return len(ids), fmt.Errorf("failed to clear stale chunks of %s: %w", source, err)
	}

	return len(ids), nil
}

// extract reads up to MaxPagesPerDoc pages. Failing pages are skipped.
func (s *IngestionService) extract(
	ctx context.Context,
	doc domain.Fingerprint,
	res *domain.DocumentResult,
) (string, domain.DocumentInfo, error) {
	if s.opts.MaxFileSizeBytes > 0 && doc.Size > s.opts.MaxFileSizeBytes {
		return "", domain.DocumentInfo{}, fmt.Errorf("%s is %d bytes, limit %d: %w",
			doc.Name, doc.Size, s.opts.MaxFileSizeBytes, domain.ErrFileTooLarge)
	}

	opened, err := s.extractor.Open(ctx, doc.Path)
	if err != nil {
		if errors.Is(err, domain.ErrUnreadable) {
			return "", domain.DocumentInfo{}, err
		}
		return "", domain.DocumentInfo{}, fmt.Errorf("%s: %w: %v", doc.Name, domain.ErrUnreadable, err)
	}
	defer func() {
		if err := opened.Close(); err != nil {
			s.logger.Debug("failed to close document", "document", doc.Name, "error", err)
		}
	}()

	info := opened.Info()
	pages := info.PageCount
	if s.opts.MaxPagesPerDoc > 0 && pages > s.opts.MaxPagesPerDoc {
		s.logger.Info("page cap reached", "document", doc.Name, "pages", pages, "limit", s.opts.MaxPagesPerDoc)
		pages = s.opts.MaxPagesPerDoc
	}

	var text strings.Builder
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return "", info, err
		}

		page, err := opened.Page(ctx, n)
		if err != nil {
			s.logger.Warn("skipping page", "document", doc.Name, "page", n, "error", err)
			res.PagesSkipped++
		} else {
			text.WriteString(page)
			text.WriteString("\n")
			res.PagesRead++
		}

		if n%s.opts.MemoryCheckPages == 0 {
			if err := s.memory.Check(CheckpointPages); err != nil {
				return "", info, err
			}
		}
	}

	raw := text.String()
	if strings.TrimSpace(raw) == "" {
		return "", info, fmt.Errorf("%s: %w", doc.Name, domain.ErrNoText)
	}
	return raw, info, nil
}

// embedAndUpsert stores chunks in upsert batches, each embedded in smaller
// sub-batches. Returns how many chunks were stored before any failure.
func (s *IngestionService) embedAndUpsert(
	ctx context.Context,
	embedder driven.EmbeddingService,
	records []domain.ChunkRecord,
) (int, error) {
	stored := 0

	for start := 0; start < len(records); start += s.opts.UpsertBatchSize {
		end := min(start+s.opts.UpsertBatchSize, len(records))
		batch := records[start:end]

		vectors := make([][]float32, 0, len(batch))
		for sub := 0; sub < len(batch); sub += s.opts.EmbedBatchSize {
			subEnd := min(sub+s.opts.EmbedBatchSize, len(batch))
			texts := make([]string, 0, subEnd-sub)
			for _, r := range batch[sub:subEnd] {
				texts = append(texts, r.Text)
			}

			embedded, err := embedder.Embed(ctx, texts)
			if err != nil {
				return stored, fmt.Errorf("failed to embed chunks %d-%d: %w", start+sub, start+subEnd-1, err)
			}
			if len(embedded) != len(texts) {
				return stored, fmt.Errorf("embedding returned %d vectors for %d texts", len(embedded), len(texts))
			}
			vectors = append(vectors, embedded...)
		}

		upserts := make([]domain.VectorRecord, len(batch))
		for i, r := range batch {
			upserts[i] = domain.VectorRecord{ChunkRecord: r, Vector: vectors[i]}
		}
		if err := s.store.Upsert(ctx, upserts); err != nil {
			return stored, fmt.Errorf("failed to upsert chunks %d-%d: %w", start, end-1, err)
		}
		stored += len(batch)

		if err := s.memory.Check(CheckpointUpsertBatch); err != nil {
			return stored, err
		}
	}

	return stored, nil
}

// prune removes a deleted document's chunks, then its fingerprint.
func (s *IngestionService) prune(ctx context.Context, doc domain.Fingerprint) error {
	if _, err := s.removeStale(ctx, doc.Name); err != nil {
		return err
	}
	if err := s.tracker.Forget(ctx, doc.Name); err != nil {
		return err
	}
	s.logger.Info("pruned deleted document", "document", doc.Name)
	return nil
}

func isSkip(err error) bool {
	return errors.Is(err, domain.ErrFileTooLarge) ||
		errors.Is(err, domain.ErrUnreadable) ||
		errors.Is(err, domain.ErrNoText) ||
		errors.Is(err, domain.ErrNoChunks)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/filesystem"
	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/pdf"
	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/postgres"
	memoryqueue "github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/queue/memory"
	postgresqueue "github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/sercha-factcheck/internal/config"
	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-factcheck/internal/core/services"
	"github.com/custodia-labs/sercha-factcheck/internal/normalisers"
	"github.com/custodia-labs/sercha-factcheck/internal/postprocessors"
	"github.com/custodia-labs/sercha-factcheck/internal/runtime"
)

// appOptions selects which parts of startup a command needs.
type appOptions struct {
	// requirePDF fails startup when poppler is missing
	requirePDF bool

	// requireEmbedding fails startup when the embedding service is unreachable
	requireEmbedding bool
}

// app holds every wired component of one process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *postgres.DB
	redisClient *redis.Client

	store        driven.VectorStore
	fingerprints driven.FingerprintStore
	taskQueue    driven.TaskQueue
	lock         driven.DistributedLock
	services     *runtime.Services

	authService driving.AuthService
	factCheck   *services.FactCheckService
	ingestion   *services.IngestionService
}

// newLogger builds the slog handler selected by the log config.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newApp connects the configured backends and builds the services.
// The caller must Close the returned app.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// ===== PDF tooling =====
	if err := pdf.CheckAvailable(); err != nil {
		if opts.requirePDF {
			return nil, fmt.Errorf("%w\n\n%s", err, pdf.InstallInstructions())
		}
		logger.Warn("pdf tools not found, ingestion unavailable", "error", err)
	}

	// ===== PostgreSQL (optional) =====
	if cfg.UsesPostgres() {
		log.Println("Connecting to PostgreSQL...")
		a.db, err = postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Store.DatabaseURL,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime.Duration,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := a.db.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		log.Println("PostgreSQL connected and schema initialized")
	}

	// ===== Redis (optional) =====
	if cfg.UsesRedis() {
		log.Println("Connecting to Redis...")
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		a.redisClient = redis.NewClient(redisOpts)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Println("Redis connected")
	}

	// ===== Vector store =====
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		a.store = postgres.NewVectorStore(a.db)
	default:
		store, err := sqlite.NewStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		a.store = store
	}
	log.Printf("Using %s vector store", cfg.Store.Backend)

	// ===== Fingerprint store =====
	switch cfg.Corpus.FingerprintBackend {
	case config.BackendRedis:
		a.fingerprints = redisadapter.NewFingerprintStore(a.redisClient, cfg.Redis.KeyPrefix)
	case config.BackendPostgres:
		a.fingerprints = postgres.NewFingerprintStore(a.db)
	default:
		a.fingerprints = filesystem.NewFingerprintStore(cfg.Corpus.FingerprintPath)
	}
	log.Printf("Using %s fingerprint store", cfg.Corpus.FingerprintBackend)

	// ===== Task queue =====
	switch cfg.Queue.Backend {
	case config.BackendRedis:
		queue, err := redisqueue.NewQueue(ctx, a.redisClient, redisqueue.Config{
			Prefix:       cfg.Redis.KeyPrefix,
			ConsumerName: fmt.Sprintf("worker-%d", os.Getpid()),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create task queue: %w", err)
		}
		a.taskQueue = queue
	case config.BackendPostgres:
		a.taskQueue = postgresqueue.NewQueue(a.db.DB)
	default:
		a.taskQueue = memoryqueue.NewQueue()
	}
	log.Printf("Using %s task queue", cfg.Queue.Backend)

	// ===== Distributed lock (Redis if available, otherwise PostgreSQL advisory locks) =====
	switch {
	case a.redisClient != nil:
		a.lock = redisadapter.NewLockWithPrefix(a.redisClient, cfg.Redis.KeyPrefix)
		log.Println("Using Redis distributed lock")
	case a.db != nil:
		a.lock = postgres.NewAdvisoryLock(a.db)
		log.Println("Using PostgreSQL advisory lock")
	default:
		log.Println("No distributed lock, sweeps are serialised in-process only")
	}

	// ===== Runtime services =====
	a.services = runtime.NewServices(domain.NewRuntimeConfig(cfg.Store.Backend, cfg.Queue.Backend))

	embedder, err := ai.NewFactory().CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:          domain.AIProvider(cfg.Embedding.Provider),
		Model:             cfg.Embedding.Model,
		APIKey:            cfg.Embedding.APIKey,
		BaseURL:           cfg.Embedding.BaseURL,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}
	if err := a.services.ValidateAndSetEmbedding(ctx, embedder); err != nil {
		if opts.requireEmbedding {
			return nil, fmt.Errorf("embedding service unavailable: %w", err)
		}
		logger.Error("embedding service unavailable, fact checks disabled", "provider", cfg.Embedding.Provider, "error", err)
	}

	if svc := a.services.EmbeddingService(); svc != nil {
		if err := services.ValidateDistances(ctx, svc, a.store, cfg.Scoring.StrictDistances, logger); err != nil {
			return nil, fmt.Errorf("vector store validation failed: %w", err)
		}
		a.services.MarkReady()
	}

	// ===== Core services =====
	pipeline, err := postprocessors.NewDefaultPipeline(postprocessors.ChunkConfig{
		ChunkSize:     cfg.Chunking.Size,
		Overlap:       cfg.Chunking.Overlap,
		MinChunkChars: cfg.Chunking.MinChars,
		MinChunkWords: cfg.Chunking.MinWords,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	gate := &sync.Mutex{}

	tracker := services.NewChangeTracker(services.ChangeTrackerConfig{
		Store:           a.fingerprints,
		Source:          filesystem.NewSource(cfg.Corpus.Dir),
		MaxDocsPerSweep: cfg.Ingestion.MaxDocsPerSweep,
		Logger:          logger,
	})

	a.ingestion = services.NewIngestionService(services.IngestionServiceConfig{
		Tracker:    tracker,
		Store:      a.store,
		Extractor:  pdf.New(),
		Normaliser: normalisers.NewPDFNormaliser(),
		Pipeline:   pipeline,
		Services:   a.services,
		Memory:     services.NewMemorySupervisor(runtime.NewGoMemorySampler(), cfg.MemoryCeilingBytes(), logger),
		Lock:       a.lock,
		Gate:       gate,
		Options:    ingestionOptions(cfg),
		Logger:     logger,
	})

	a.factCheck = services.NewFactCheckService(services.FactCheckServiceConfig{
		Store:    a.store,
		Services: a.services,
		Gate:     gate,
		Options:  scoringOptions(cfg),
		Logger:   logger,
	})

	a.authService = services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret))

	log.Printf("Runtime config: vector_backend=%s, queue_backend=%s, embedding=%t, ready=%t",
		cfg.Store.Backend, cfg.Queue.Backend,
		a.services.Config().EmbeddingAvailable(), a.services.Ready())

	return a, nil
}

// Close releases every backend in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	if a.services != nil {
		errs = append(errs, a.services.Close())
	}
	if a.taskQueue != nil {
		errs = append(errs, a.taskQueue.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error during shutdown", "error", err)
	}
}

func ingestionOptions(cfg *config.Config) services.IngestionOptions {
	in := cfg.Ingestion
	return services.IngestionOptions{
		MaxFileSizeBytes:  cfg.MaxFileSizeBytes(),
		MaxPagesPerDoc:    in.MaxPagesPerDoc,
		MemoryCheckPages:  in.MemoryCheckPages,
		StaleScanPageSize: in.StaleScanPageSize,
		DeleteBatchSize:   in.DeleteBatchSize,
		UpsertBatchSize:   in.UpsertBatchSize,
		EmbedBatchSize:    in.EmbedBatchSize,
		MemoryAbortSweep:  in.MemoryAbortSweep,
		PruneMissing:      in.PruneMissing,
		LockTTL:           in.LockTTL.Duration,
	}
}

func scoringOptions(cfg *config.Config) services.ScoringOptions {
	sc := cfg.Scoring
	return services.ScoringOptions{
		MinFragmentChars:    sc.MinFragmentChars,
		MinClaimChars:       sc.MinClaimChars,
		MaxClaimsPerQuery:   sc.MaxClaimsPerQuery,
		TopK:                sc.TopK,
		SimilarityThreshold: sc.SimilarityThreshold,
		ConfidenceFloor:     sc.ConfidenceFloor,
		SupportingTextRunes: sc.SupportingTextChars,
	}
}

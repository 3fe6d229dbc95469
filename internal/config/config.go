// Package config resolves the service configuration.
//
// Values are layered: built-in defaults, then an optional TOML or YAML file,
// then a .env file, then process environment variables. Validate runs last.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backend names
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendFile     = "file"
)

// Config holds every knob of the service.
type Config struct {
	Corpus    CorpusConfig    `toml:"corpus" yaml:"corpus"`
	Chunking  ChunkingConfig  `toml:"chunking" yaml:"chunking"`
	Ingestion IngestionConfig `toml:"ingestion" yaml:"ingestion"`
	Scoring   ScoringConfig   `toml:"scoring" yaml:"scoring"`
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	Store     StoreConfig     `toml:"store" yaml:"store"`
	Queue     QueueConfig     `toml:"queue" yaml:"queue"`
	Redis     RedisConfig     `toml:"redis" yaml:"redis"`
	HTTP      HTTPConfig      `toml:"http" yaml:"http"`
	Auth      AuthConfig      `toml:"auth" yaml:"auth"`
	Worker    WorkerConfig    `toml:"worker" yaml:"worker"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

// CorpusConfig locates the documents and their fingerprints.
type CorpusConfig struct {
	Dir                string `toml:"dir" yaml:"dir"`
	FingerprintBackend string `toml:"fingerprint_backend" yaml:"fingerprint_backend"` // file, redis or postgres
	FingerprintPath    string `toml:"fingerprint_path" yaml:"fingerprint_path"`
}

// ChunkingConfig controls the sliding window chunker.
type ChunkingConfig struct {
	Size     int `toml:"size" yaml:"size"`
	Overlap  int `toml:"overlap" yaml:"overlap"`
	MinChars int `toml:"min_chars" yaml:"min_chars"`
	MinWords int `toml:"min_words" yaml:"min_words"`
}

// IngestionConfig bounds sweeps and schedules them.
type IngestionConfig struct {
	MaxFileSizeMB     int      `toml:"max_file_size_mb" yaml:"max_file_size_mb"`
	MaxPagesPerDoc    int      `toml:"max_pages_per_doc" yaml:"max_pages_per_doc"`
	MaxDocsPerSweep   int      `toml:"max_docs_per_sweep" yaml:"max_docs_per_sweep"`
	MemoryCeilingMB   int      `toml:"memory_ceiling_mb" yaml:"memory_ceiling_mb"`
	MemoryCheckPages  int      `toml:"memory_check_pages" yaml:"memory_check_pages"`
	MemoryAbortSweep  bool     `toml:"memory_abort_sweep" yaml:"memory_abort_sweep"`
	PruneMissing      bool     `toml:"prune_missing" yaml:"prune_missing"`
	EmbedBatchSize    int      `toml:"embed_batch_size" yaml:"embed_batch_size"`
	UpsertBatchSize   int      `toml:"upsert_batch_size" yaml:"upsert_batch_size"`
	DeleteBatchSize   int      `toml:"delete_batch_size" yaml:"delete_batch_size"`
	StaleScanPageSize int      `toml:"stale_scan_page_size" yaml:"stale_scan_page_size"`
	LockTTL           Duration `toml:"lock_ttl" yaml:"lock_ttl"`
	SweepInterval     Duration `toml:"sweep_interval" yaml:"sweep_interval"`
	SweepOnStart      bool     `toml:"sweep_on_start" yaml:"sweep_on_start"`
	Watch             bool     `toml:"watch" yaml:"watch"`
	WatchDebounce     Duration `toml:"watch_debounce" yaml:"watch_debounce"`
}

// ScoringConfig controls claim extraction and confidence.
type ScoringConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold" yaml:"similarity_threshold"`
	ConfidenceFloor     float64 `toml:"confidence_floor" yaml:"confidence_floor"`
	TopK                int     `toml:"top_k" yaml:"top_k"`
	MaxClaimsPerQuery   int     `toml:"max_claims_per_query" yaml:"max_claims_per_query"`
	MinClaimChars       int     `toml:"min_claim_chars" yaml:"min_claim_chars"`
	MinFragmentChars    int     `toml:"min_fragment_chars" yaml:"min_fragment_chars"`
	SupportingTextChars int     `toml:"supporting_text_chars" yaml:"supporting_text_chars"`
	StrictDistances     bool    `toml:"strict_distances" yaml:"strict_distances"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider" yaml:"provider"` // ollama or openai
	Model             string  `toml:"model" yaml:"model"`
	APIKey            string  `toml:"api_key" yaml:"api_key"`
	BaseURL           string  `toml:"base_url" yaml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
}

// StoreConfig selects the vector store.
type StoreConfig struct {
	Backend         string   `toml:"backend" yaml:"backend"` // sqlite or postgres
	SQLitePath      string   `toml:"sqlite_path" yaml:"sqlite_path"`
	DatabaseURL     string   `toml:"database_url" yaml:"database_url"`
	MaxOpenConns    int      `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int      `toml:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime Duration `toml:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// QueueConfig selects the task queue.
type QueueConfig struct {
	Backend string `toml:"backend" yaml:"backend"` // memory, redis or postgres
}

// RedisConfig holds the Redis connection.
type RedisConfig struct {
	URL       string `toml:"url" yaml:"url"`
	KeyPrefix string `toml:"key_prefix" yaml:"key_prefix"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Host           string   `toml:"host" yaml:"host"`
	Port           int      `toml:"port" yaml:"port"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
	CheckRate      float64  `toml:"check_rate" yaml:"check_rate"`
	CheckBurst     int      `toml:"check_burst" yaml:"check_burst"`
}

// AuthConfig holds the admin token secret.
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl" yaml:"token_ttl"`
}

// WorkerConfig configures background task processing.
type WorkerConfig struct {
	DequeueTimeout   int  `toml:"dequeue_timeout" yaml:"dequeue_timeout"`
	SchedulerEnabled bool `toml:"scheduler_enabled" yaml:"scheduler_enabled"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Dir:                "./documents",
			FingerprintBackend: BackendFile,
			FingerprintPath:    "./data/fingerprints.json",
		},
		Chunking: ChunkingConfig{
			Size:     400,
			Overlap:  50,
			MinChars: 100,
			MinWords: 10,
		},
		Ingestion: IngestionConfig{
			MaxFileSizeMB:     50,
			MaxPagesPerDoc:    100,
			MaxDocsPerSweep:   3,
			MemoryCeilingMB:   4096,
			MemoryCheckPages:  10,
			EmbedBatchSize:    2,
			UpsertBatchSize:   5,
			DeleteBatchSize:   100,
			StaleScanPageSize: 50,
			LockTTL:           Duration{30 * time.Minute},
			SweepInterval:     Duration{time.Hour},
			SweepOnStart:      true,
			Watch:             false,
			WatchDebounce:     Duration{5 * time.Second},
		},
		Scoring: ScoringConfig{
			SimilarityThreshold: 0.6,
			ConfidenceFloor:     0.6,
			TopK:                3,
			MaxClaimsPerQuery:   5,
			MinClaimChars:       20,
			MinFragmentChars:    10,
			SupportingTextChars: 200,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "all-minilm",
			BaseURL:  "http://localhost:11434",
		},
		Store: StoreConfig{
			Backend:         BackendSQLite,
			SQLitePath:      "./data/chunks.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration{5 * time.Minute},
			ConnMaxIdleTime: Duration{time.Minute},
		},
		Queue: QueueConfig{
			Backend: BackendMemory,
		},
		Redis: RedisConfig{
			KeyPrefix: "factcheck:",
		},
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
			CheckRate:      5,
			CheckBurst:     10,
		},
		Auth: AuthConfig{
			JWTSecret: "development-secret-change-in-production",
			TokenTTL:  Duration{24 * time.Hour},
		},
		Worker: WorkerConfig{
			DequeueTimeout:   5,
			SchedulerEnabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves the configuration. path may be empty; envFile may be empty
// to skip .env loading, and a missing .env file is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays a TOML or YAML file chosen by extension.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	return nil
}

// applyEnv overlays environment variables on the current values.
func (c *Config) applyEnv() {
	c.Corpus.Dir = getEnv("DOCUMENTS_DIR", c.Corpus.Dir)
	c.Corpus.FingerprintBackend = getEnv("FINGERPRINT_BACKEND", c.Corpus.FingerprintBackend)
	c.Corpus.FingerprintPath = getEnv("FINGERPRINT_PATH", c.Corpus.FingerprintPath)

	c.Chunking.Size = getEnvInt("CHUNK_SIZE", c.Chunking.Size)
	c.Chunking.Overlap = getEnvInt("CHUNK_OVERLAP", c.Chunking.Overlap)
	c.Chunking.MinChars = getEnvInt("MIN_CHUNK_CHARS", c.Chunking.MinChars)
	c.Chunking.MinWords = getEnvInt("MIN_CHUNK_WORDS", c.Chunking.MinWords)

	in := &c.Ingestion
	in.MaxFileSizeMB = getEnvInt("MAX_FILE_SIZE_MB", in.MaxFileSizeMB)
	in.MaxPagesPerDoc = getEnvInt("MAX_PAGES_PER_DOC", in.MaxPagesPerDoc)
	in.MaxDocsPerSweep = getEnvInt("MAX_DOCS_PER_SWEEP", in.MaxDocsPerSweep)
	in.MemoryCeilingMB = getEnvInt("MEMORY_CEILING_MB", in.MemoryCeilingMB)
	in.MemoryCheckPages = getEnvInt("MEMORY_CHECK_PAGES", in.MemoryCheckPages)
	in.MemoryAbortSweep = getEnvBool("MEMORY_ABORT_SWEEP", in.MemoryAbortSweep)
	in.PruneMissing = getEnvBool("PRUNE_MISSING", in.PruneMissing)
	in.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", in.EmbedBatchSize)
	in.UpsertBatchSize = getEnvInt("UPSERT_BATCH_SIZE", in.UpsertBatchSize)
	in.DeleteBatchSize = getEnvInt("DELETE_BATCH_SIZE", in.DeleteBatchSize)
	in.StaleScanPageSize = getEnvInt("STALE_SCAN_PAGE_SIZE", in.StaleScanPageSize)
	in.LockTTL.Duration = getEnvDuration("SWEEP_LOCK_TTL", in.LockTTL.Duration)
	in.SweepInterval.Duration = getEnvDuration("SWEEP_INTERVAL", in.SweepInterval.Duration)
	in.SweepOnStart = getEnvBool("SWEEP_ON_START", in.SweepOnStart)
	in.Watch = getEnvBool("WATCH_DOCUMENTS", in.Watch)
	in.WatchDebounce.Duration = getEnvDuration("WATCH_DEBOUNCE", in.WatchDebounce.Duration)

	sc := &c.Scoring
	sc.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", sc.SimilarityThreshold)
	sc.ConfidenceFloor = getEnvFloat("CONFIDENCE_FLOOR", sc.ConfidenceFloor)
	sc.TopK = getEnvInt("TOP_K", sc.TopK)
	sc.MaxClaimsPerQuery = getEnvInt("MAX_CLAIMS_PER_QUERY", sc.MaxClaimsPerQuery)
	sc.MinClaimChars = getEnvInt("MIN_CLAIM_CHARS", sc.MinClaimChars)
	sc.MinFragmentChars = getEnvInt("MIN_FRAGMENT_CHARS", sc.MinFragmentChars)
	sc.SupportingTextChars = getEnvInt("SUPPORTING_TEXT_CHARS", sc.SupportingTextChars)
	sc.StrictDistances = getEnvBool("STRICT_DISTANCES", sc.StrictDistances)

	c.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = getEnv("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", c.Embedding.APIKey))
	c.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.RequestsPerSecond = getEnvFloat("EMBEDDING_RPS", c.Embedding.RequestsPerSecond)

	c.Store.Backend = getEnv("VECTOR_BACKEND", c.Store.Backend)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Store.MaxOpenConns)
	c.Store.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Store.MaxIdleConns)
	c.Store.ConnMaxLifetime.Duration = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Store.ConnMaxLifetime.Duration)
	c.Store.ConnMaxIdleTime.Duration = getEnvDuration("DB_CONN_MAX_IDLE", c.Store.ConnMaxIdleTime.Duration)

	c.Queue.Backend = getEnv("QUEUE_BACKEND", c.Queue.Backend)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)

	c.HTTP.Host = getEnv("HOST", c.HTTP.Host)
	c.HTTP.Port = getEnvInt("PORT", c.HTTP.Port)
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		c.HTTP.AllowedOrigins = splitList(origins)
	}
	c.HTTP.CheckRate = getEnvFloat("FACTCHECK_RATE", c.HTTP.CheckRate)
	c.HTTP.CheckBurst = getEnvInt("FACTCHECK_BURST", c.HTTP.CheckBurst)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL.Duration = getEnvDuration("TOKEN_TTL", c.Auth.TokenTTL.Duration)

	c.Worker.DequeueTimeout = getEnvInt("WORKER_DEQUEUE_TIMEOUT", c.Worker.DequeueTimeout)
	c.Worker.SchedulerEnabled = getEnvBool("SCHEDULER_ENABLED", c.Worker.SchedulerEnabled)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate rejects configurations the services could not run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Corpus.Dir == "" {
		errs = append(errs, errors.New("corpus.dir is required"))
	}
	switch c.Corpus.FingerprintBackend {
	case BackendFile:
		if c.Corpus.FingerprintPath == "" {
			errs = append(errs, errors.New("corpus.fingerprint_path is required for the file backend"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis fingerprint backend"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres fingerprint backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown fingerprint backend %q", c.Corpus.FingerprintBackend))
	}

	if c.Chunking.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size))
	}
	if c.Chunking.Overlap <= 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, fmt.Errorf("chunking.overlap must be in (0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap))
	}

	if c.Scoring.SimilarityThreshold <= 0 || c.Scoring.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("scoring.similarity_threshold must be in (0, 1], got %v", c.Scoring.SimilarityThreshold))
	}
	if c.Scoring.ConfidenceFloor < 0 || c.Scoring.ConfidenceFloor > 1 {
		errs = append(errs, fmt.Errorf("scoring.confidence_floor must be in [0, 1], got %v", c.Scoring.ConfidenceFloor))
	}
	if c.Scoring.TopK <= 0 {
		errs = append(errs, fmt.Errorf("scoring.top_k must be positive, got %d", c.Scoring.TopK))
	}

	switch c.Embedding.Provider {
	case "ollama":
	case "openai":
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding.api_key is required for openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.Store.Backend))
	}

	switch c.Queue.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis queue"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue backend %q", c.Queue.Backend))
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// MaxFileSizeBytes converts the size ceiling to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Ingestion.MaxFileSizeMB) * 1024 * 1024
}

// MemoryCeilingBytes converts the memory ceiling to bytes.
func (c *Config) MemoryCeilingBytes() uint64 {
	if c.Ingestion.MemoryCeilingMB <= 0 {
		return 0
	}
	return uint64(c.Ingestion.MemoryCeilingMB) * 1024 * 1024
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Queue.Backend == BackendRedis || c.Corpus.FingerprintBackend == BackendRedis
}

// UsesPostgres reports whether any component needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.Store.Backend == BackendPostgres ||
		c.Queue.Backend == BackendPostgres ||
		c.Corpus.FingerprintBackend == BackendPostgres
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

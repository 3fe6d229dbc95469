package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driven/filesystem"
	"github.com/custodia-labs/sercha-factcheck/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-factcheck/internal/config"
	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/services"
	"github.com/custodia-labs/sercha-factcheck/internal/worker"
)

// Run modes of the serve command
const (
	modeAPI    = "api"
	modeWorker = "worker"
	modeAll    = "all"
)

var (
	flagConfig  string
	flagEnvFile string
)

var rootCmd = &cobra.Command{
	Use:           "sercha-factcheck",
	Short:         "Fact-check messages against a corpus of PDF documents",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", getEnv("CONFIG_FILE", ""), "config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before environment overrides")

	sweepCmd.Flags().Bool("enqueue", false, "enqueue the sweep for a running worker instead of running it here")
	rebuildCmd.Flags().Bool("enqueue", false, "enqueue the rebuild for a running worker instead of running it here")
	checkCmd.Flags().Bool("json", false, "print the verdict as JSON")
	statsCmd.Flags().Bool("overview", false, "include the per-source breakdown")
	tokenCmd.Flags().String("subject", "admin", "token subject")
	tokenCmd.Flags().String("role", string(domain.RoleAdmin), "token role (admin or reader)")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default from auth.token_ttl)")

	rootCmd.AddCommand(serveCmd, sweepCmd, rebuildCmd, checkCmd, statsCmd, tokenCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("sercha-factcheck version %s\n", version)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve [api|worker|all]",
	Short: "Run the API server, the ingestion worker, or both",
	Long: `Runs the service until interrupted.

  api     HTTP API only
  worker  task worker with the sweep scheduler and directory watcher
  all     both in one process (default, or RUN_MODE)`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{modeAPI, modeWorker, modeAll},
	RunE:      runServe,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Ingest new and modified documents once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngestion(cmd, domain.TaskTypeSweep)
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Clear the corpus and fingerprints, then ingest everything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngestion(cmd, domain.TaskTypeRebuild)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <message>",
	Short: "Fact-check a message against the corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

// loadConfig resolves the configuration and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flagConfig, flagEnvFile)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func resolveMode(args []string) (string, error) {
	mode := getEnv("RUN_MODE", modeAll)
	if len(args) > 0 {
		mode = args[0]
	}
	switch mode {
	case modeAPI, modeWorker, modeAll:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode: %s (use: api, worker, or all)", mode)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	mode, err := resolveMode(args)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Printf("sercha-factcheck %s starting in %s mode", version, mode)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger, appOptions{requirePDF: mode != modeAPI})
	if err != nil {
		return err
	}
	defer a.Close()

	var w *worker.Worker
	if mode != modeAPI {
		w = newWorker(a)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
		log.Println("Worker started, processing tasks...")
	}

	if mode == modeWorker {
		<-ctx.Done()
		log.Println("Stopping worker...")
		w.Stop()
		log.Println("Worker stopped")
		return nil
	}

	server := http.NewServer(http.Config{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		Version:        version,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		CheckRate:      cfg.HTTP.CheckRate,
		CheckBurst:     cfg.HTTP.CheckBurst,
	}, a.authService, a.factCheck, a.ingestion, a.services, a.taskQueue, logger)

	log.Printf("API server starting on %s", server.Addr())
	serveErr := server.Start(ctx)

	if w != nil {
		log.Println("Stopping worker...")
		w.Stop()
		log.Println("Worker stopped")
	}
	return serveErr
}

// newWorker builds the task worker with its sweep triggers.
func newWorker(a *app) *worker.Worker {
	cfg := a.cfg

	var triggers []worker.Trigger
	if cfg.Worker.SchedulerEnabled {
		triggers = append(triggers, services.NewScheduler(services.SchedulerConfig{
			TaskQueue:  a.taskQueue,
			Lock:       a.lock,
			Logger:     a.logger,
			Interval:   cfg.Ingestion.SweepInterval.Duration,
			RunOnStart: cfg.Ingestion.SweepOnStart,
		}))
		log.Printf("Scheduler enabled (interval=%s)", cfg.Ingestion.SweepInterval.Duration)
	} else {
		log.Println("Scheduler disabled via SCHEDULER_ENABLED=false")
	}

	if cfg.Ingestion.Watch {
		triggers = append(triggers, filesystem.NewWatcher(filesystem.WatcherConfig{
			Dir:       cfg.Corpus.Dir,
			TaskQueue: a.taskQueue,
			Debounce:  cfg.Ingestion.WatchDebounce.Duration,
			Logger:    a.logger,
		}))
		log.Printf("Watching %s for changes", cfg.Corpus.Dir)
	}

	return worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.taskQueue,
		Ingestion:      a.ingestion,
		Triggers:       triggers,
		Logger:         a.logger,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
	})
}

func runIngestion(cmd *cobra.Command, taskType domain.TaskType) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	enqueue, _ := cmd.Flags().GetBool("enqueue")
	if enqueue && cfg.Queue.Backend == config.BackendMemory {
		return errors.New("--enqueue needs a shared queue backend (redis or postgres)")
	}

	a, err := newApp(ctx, cfg, logger, appOptions{requirePDF: !enqueue, requireEmbedding: !enqueue})
	if err != nil {
		return err
	}
	defer a.Close()

	if enqueue {
		task := domain.NewTask(taskType, domain.TriggerCLI)
		if err := a.taskQueue.Enqueue(ctx, task); err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
		}
		cmd.Printf("Enqueued %s task %s\n", taskType, task.ID)
		return nil
	}

	cmd.Printf("Running %s of %s...\n", taskType, cfg.Corpus.Dir)

	var result *domain.SweepResult
	if taskType == domain.TaskTypeRebuild {
		result, err = a.ingestion.Rebuild(ctx)
	} else {
		result, err = a.ingestion.Sweep(ctx)
	}
	if errors.Is(err, domain.ErrSweepInProgress) {
		cmd.Println("Another sweep is in progress, nothing to do.")
		return nil
	}
	if result != nil {
		printSweep(cmd, result)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", taskType, err)
	}
	return nil
}

func printSweep(cmd *cobra.Command, r *domain.SweepResult) {
	s := r.Stats
	cmd.Printf("Scanned %d, changed %d, processed %d, skipped %d, failed %d, deferred %d, pruned %d\n",
		s.DocumentsScanned, s.DocumentsChanged, s.DocumentsProcessed,
		s.DocumentsSkipped, s.DocumentsFailed, s.DocumentsDeferred, s.DocumentsPruned)
	cmd.Printf("Chunks upserted %d, removed %d in %.1fs\n",
		s.ChunksUpserted, s.ChunksRemoved, r.Duration)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger, appOptions{requireEmbedding: true})
	if err != nil {
		return err
	}
	defer a.Close()

	verdict := a.factCheck.Check(ctx, strings.Join(args, " "))

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(verdict); err != nil {
			return err
		}
	} else {
		cmd.Println(services.FormatVerdict(verdict))
	}

	if verdict.HasError() {
		return fmt.Errorf("fact check failed: %s", verdict.Error)
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	overview, _ := cmd.Flags().GetBool("overview")
	if !overview {
		stats, err := a.factCheck.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		cmd.Printf("Chunks: %d\nSources: %d\n", stats.TotalChunks, stats.UniqueSources)
		for _, src := range stats.Sources {
			cmd.Printf("  %s\n", src)
		}
		return nil
	}

	ov, err := a.factCheck.Overview(ctx)
	if err != nil {
		return fmt.Errorf("failed to read overview: %w", err)
	}
	cmd.Printf("Chunks: %d\nSources: %d\nAuthors: %d\n", ov.TotalChunks, ov.UniqueSources, ov.UniqueAuthors)
	for _, d := range ov.Sources {
		cmd.Printf("  %s  %q by %s, %d chunks, processed %s\n", d.Source, d.Title, d.Author, d.ChunkCount, d.ProcessedDate)
	}
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig, flagEnvFile)
	if err != nil {
		return err
	}

	subject, _ := cmd.Flags().GetString("subject")
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL.Duration
	}

	r := domain.Role(role)
	if r != domain.RoleAdmin && r != domain.RoleReader {
		return fmt.Errorf("%w: role must be admin or reader", domain.ErrInvalidInput)
	}

	authService := services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret))
	token, err := authService.IssueToken(cmd.Context(), subject, r, ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	cmd.Println(token)
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

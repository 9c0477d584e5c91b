package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bcsurf2822/ragpipe/internal/adapters/driven/embedding/ollama"
	"github.com/bcsurf2822/ragpipe/internal/adapters/driven/embedding/openai"
	"github.com/bcsurf2822/ragpipe/internal/adapters/driven/storage/sqlite"
	"github.com/bcsurf2822/ragpipe/internal/adapters/driving/statusapi"
	"github.com/bcsurf2822/ragpipe/internal/chunker"
	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
	"github.com/bcsurf2822/ragpipe/internal/core/services"
	"github.com/bcsurf2822/ragpipe/internal/extract"
	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Flags shared by the local and drive commands.
var (
	flagInterval   time.Duration
	flagSingleRun  bool
	flagStatusPort int
	flagPipelineID string
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&flagInterval, "interval", 0, "check interval (default 60s)")
	cmd.Flags().BoolVar(&flagSingleRun, "single-run", false, "run one cycle and exit")
	cmd.Flags().IntVar(&flagStatusPort, "status-port", 0, "status endpoint port (default 8003, -1 disables)")
	cmd.Flags().StringVar(&flagPipelineID, "pipeline-id", "", "pipeline instance identifier")
}

// loadRunConfig builds the effective configuration from the config file
// and command flags.
func loadRunConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fatal(err)
	}
	if flagInterval > 0 {
		cfg.Interval = flagInterval
	}
	if flagStatusPort != 0 {
		cfg.Status.Port = flagStatusPort
	}
	if flagPipelineID != "" {
		cfg.PipelineID = flagPipelineID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fatal(err)
	}
	return cfg, nil
}

// singleRun reports whether the process should run exactly one cycle.
// The RUN_MODE environment variable is the container-friendly alias for
// the --single-run flag.
func singleRun() bool {
	return flagSingleRun || strings.EqualFold(os.Getenv("RUN_MODE"), "single")
}

// runPipeline is the shared run path for both source kinds: wire the
// stores, ingestion chain and status endpoint, then run one cycle or the
// scheduler loop until a signal arrives.
func runPipeline(cfg *config.Config, scanner driven.Scanner, pipelineID string) error {
	defer scanner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scanner.Validate(ctx); err != nil {
		return fatal(fmt.Errorf("validating source: %w", err))
	}

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fatal(err)
	}
	defer store.Close()

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return fatal(err)
	}
	if embedder != nil {
		defer embedder.Close()
	}

	status := services.NewStatusTracker(scanner.Type())
	ingestor := services.NewIngestor(cfg, scanner, extract.New(cfg.MaxFileSize),
		chunker.New(
			chunker.WithChunkSize(cfg.Text.ChunkSize),
			chunker.WithOverlap(cfg.Text.ChunkOverlap),
		),
		embedder, store.DocumentStore(), status)
	pipeline := services.NewPipeline(cfg, pipelineID, scanner, store.StateStore(),
		ingestor, services.NewReconciler(store.DocumentStore()), status)

	if singleRun() {
		stats, err := pipeline.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("cycle failed: %w", err)
		}
		logger.Info("[cli] single run done: %d processed, %d deleted, %d orphans, %d errors",
			stats.FilesProcessed, stats.FilesDeleted, stats.OrphansDeleted, stats.Errors)
		if stats.Errors > 0 {
			return fmt.Errorf("%d files failed", stats.Errors)
		}
		return nil
	}

	if cfg.Status.Port > 0 {
		srv := statusapi.New(pipeline, cfg.Status.Port)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Warn("[cli] status server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	logger.Info("[cli] starting %s pipeline %q, interval %s", scanner.Type(), pipelineID, cfg.Interval)
	return pipeline.Run(ctx)
}

// newEmbedder builds the configured embedding service, or nil when
// embeddings are disabled. A configured but unreachable service is fatal
// at startup rather than a per-file surprise later.
func newEmbedder(ctx context.Context, cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "":
		return nil, nil
	case "ollama":
		svc := ollama.New(ollama.Config{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
		if err := svc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("embedding service unreachable: %w", err)
		}
		return svc, nil
	case "openai":
		keyEnv := cfg.Embedding.APIKeyEnv
		if keyEnv == "" {
			keyEnv = "OPENAI_API_KEY"
		}
		svc, err := openai.New(openai.Config{
			APIKey:  os.Getenv(keyEnv),
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// defaultPipelineID derives a stable instance ID from the source kind
// and its root when none is configured.
func defaultPipelineID(cfg *config.Config, typ domain.PipelineType, root string) string {
	if cfg.PipelineID != "" {
		return cfg.PipelineID
	}
	return fmt.Sprintf("%s_%s", typ, root)
}

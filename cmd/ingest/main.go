// Command ingest runs the batch pipeline: pull templates from one source
// into the corpus, optionally cleanse the corpus and rebuild the index.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/config"
	"github.com/flowhub-cloud/flowdex/internal/domain"
	"github.com/flowhub-cloud/flowdex/internal/ingest"
	logpkg "github.com/flowhub-cloud/flowdex/internal/logger"
	"github.com/flowhub-cloud/flowdex/internal/repository/cleaned"
	"github.com/flowhub-cloud/flowdex/internal/repository/corpus"
	"github.com/flowhub-cloud/flowdex/internal/usecase/cleanse"
	indexuc "github.com/flowhub-cloud/flowdex/internal/usecase/index"
)

func main() {
	// Secrets (API tokens) usually live in .env during local runs.
	_ = godotenv.Load()

	var (
		source   = flag.String("source", "", "ingestion source: bulk | api | cms")
		bulkFile = flag.String("file", "", "path to the bulk JSON payload (source=bulk)")
		clean    = flag.Bool("clean", false, "cleanse the corpus after ingestion")
		reindex  = flag.Bool("reindex", false, "rebuild the index artifact")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *source, *bulkFile, *clean, *reindex, logger); err != nil {
		logger.Error("ingest failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cfg config.Config,
	source, bulkFile string,
	clean, reindex bool,
	logger *zap.Logger,
) error {
	store, err := corpus.New(cfg.Corpus.Dir)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	builder := indexuc.NewBuilder(store, cfg.Corpus.MaxDescription, logger)

	switch source {
	case "":
		if !clean && !reindex {
			return errors.New("nothing to do: pass -source, -clean or -reindex")
		}
	case "bulk":
		if bulkFile == "" {
			return errors.New("-file is required for source=bulk")
		}
		payload, err := os.ReadFile(bulkFile)
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		report, err := ingest.NewBulkImporter(store, logger).Import(ctx, payload)
		if err != nil {
			return err
		}
		logger.Info("bulk done", zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
	case "api":
		job := ingest.NewAPIJob(ingest.APIConfig{
			Regions:   cfg.Sources.API.Regions,
			Token:     cfg.Sources.API.Token,
			PageSize:  cfg.Sources.API.PageSize,
			PageDelay: time.Duration(cfg.Sources.API.PageDelayMS) * time.Millisecond,
		}, store, logger)
		report, err := job.Fetch(ctx)
		if err != nil {
			// A halted paginated fetch keeps its partial progress.
			if errors.Is(err, domain.ErrUpstreamUnavailable) {
				logger.Warn("api fetch halted",
					zap.Int("imported", report.Imported),
					zap.Error(err),
				)
			}
			return err
		}
		logger.Info("api done", zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
	case "cms":
		job := ingest.NewCMSJob(ingest.CMSConfig{
			BaseURL:  cfg.Sources.CMS.BaseURL,
			Token:    cfg.Sources.CMS.Token,
			PageSize: cfg.Sources.CMS.PageSize,
		}, store, builder, logger)
		report, err := job.Sync(ctx)
		if err != nil {
			return err
		}
		logger.Info("cms done", zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
	default:
		return fmt.Errorf("unknown source %q", source)
	}

	if clean {
		cleanedStore := cleaned.New(cfg.Corpus.CleanedDir)
		report, err := cleanse.New(store, cleanedStore, logger).Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("cleanse done", zap.Int("cleaned", report.Cleaned), zap.Int("skipped", report.Skipped))
	}

	if reindex {
		summary, err := builder.Rebuild(ctx)
		if err != nil {
			return err
		}
		logger.Info("reindex done",
			zap.Int("records", summary.Records),
			zap.Int("skipped", summary.Skipped),
			zap.Int("bytes", summary.Bytes),
		)
	}

	return nil
}

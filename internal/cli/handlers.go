package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mpawlak/statsync/internal/checkpoint"
	"github.com/mpawlak/statsync/internal/config"
	"github.com/mpawlak/statsync/internal/errlog"
	"github.com/mpawlak/statsync/internal/etl"
	"github.com/mpawlak/statsync/internal/source"
	"github.com/mpawlak/statsync/pkg/database"
	"github.com/mpawlak/statsync/pkg/logger"
	"github.com/mpawlak/statsync/pkg/models"
)

func runUpload(opts *UploadOptions, cats []models.Category) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.LogFile); err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logger.Close()

	mongoClient, err := database.ConnectMongo(cfg.MongoConnString)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())
	logger.Info("Connected to MongoDB.")

	var src etl.Source
	if opts.FromSQL {
		if cfg.SQLConnString == "" {
			return fmt.Errorf("--from-sql requires SQL_CONNECTION_STRING to be set")
		}
		sqlDB, err := database.ConnectSQL(cfg.SQLConnString)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		src = source.NewSQLSource(sqlDB)
	} else {
		src = source.NewCSVSource(cfg.DataDir)
	}

	pipeline := &etl.Pipeline{
		Store:       etl.NewMongoStore(mongoClient, cfg.MongoDatabase),
		Source:      src,
		Checkpoints: checkpoint.NewStore(cfg.CheckpointFile),
		Errors:      errlog.New(cfg.ErrorLogFile),
		BatchSize:   cfg.BatchSize,
		BatchDelay:  cfg.BatchDelay,
		Retry: etl.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
		},
		DryRun: opts.DryRun,
	}

	// SIGINT/SIGTERM stop the run before the next batch; the in-flight
	// batch finishes its current attempt and the checkpoint stays
	// consistent.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Run(ctx, cats)
	if err != nil {
		return err
	}
	if summary.Interrupted {
		logger.Warn("run interrupted; checkpoint left for the next resume")
	}
	// Per-batch errors are reported in the summary and error log but do
	// not fail the process: partial progress is never discarded.
	return nil
}

func runVerify(cats []models.Category) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mongoClient, err := database.ConnectMongo(cfg.MongoConnString)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())

	store := etl.NewMongoStore(mongoClient, cfg.MongoDatabase)
	pipeline := &etl.Pipeline{Store: store}

	counts, err := pipeline.Verify(context.Background(), cats)
	if err != nil {
		return err
	}
	for _, cat := range cats {
		fmt.Printf("%-10s %s: %d documents\n", cat, cat.Collection(), counts[cat])
	}
	return nil
}

func runPurge(cat models.Category) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mongoClient, err := database.ConnectMongo(cfg.MongoConnString)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())

	store := etl.NewMongoStore(mongoClient, cfg.MongoDatabase)
	deleted, err := store.Purge(context.Background(), cat.Collection())
	if err != nil {
		return fmt.Errorf("purging %s: %w", cat.Collection(), err)
	}
	fmt.Printf("deleted %d documents from %s\n", deleted, cat.Collection())

	// Drop the category's checkpoint entry so a later upload starts clean.
	cps := checkpoint.NewStore(cfg.CheckpointFile)
	cp, err := cps.Load()
	if err != nil {
		logger.Warnf("checkpoint unreadable, leaving it alone: %v", err)
		return nil
	}
	if _, ok := cp.Categories[cat]; ok {
		delete(cp.Categories, cat)
		if len(cp.Categories) == 0 {
			return cps.Clear()
		}
		return cps.Save(cp)
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobScope/internal/codec"
	"jobScope/internal/config"
	"jobScope/internal/indexer"
	"jobScope/internal/ingest"
	"jobScope/internal/model"
	"jobScope/internal/storage"
	"jobScope/internal/storage/postgres"
)

func runIngest(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadIngest(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := required("input path", cfg.In); err != nil {
		return err
	}
	if err := required("pg dsn", cfg.PGDSN); err != nil {
		return err
	}
	marketplace, marketplaceData, err := contracts(cfg.Marketplace, cfg.MarketplaceData)
	if err != nil {
		return err
	}

	logs, err := storage.ReadLogs(cfg.In)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	decoder, err := codec.NewDecoder()
	if err != nil {
		return err
	}
	ingestor, err := ingest.NewIngestor(ingest.Config{Marketplace: marketplace, MarketplaceData: marketplaceData}, store, decoder, logger)
	if err != nil {
		return err
	}

	errWriter, err := newJSONLWriter(cfg.Errors, true)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("ingest start",
		zap.String("in", cfg.In),
		zap.Int("logs", len(logs)),
		zap.String("marketplace", marketplace.Hex()),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("errors", cfg.Errors),
	)

	var total ingest.Result
	sink := indexer.SinkFunc(func(ctx context.Context, blocks []model.Block) error {
		res, err := ingestor.Ingest(ctx, blocks)
		if err != nil {
			return err
		}
		for _, decodeErr := range res.DecodeErrors {
			if err := errWriter.Write(decodeErr); err != nil {
				return err
			}
		}
		total.Logs += res.Logs
		total.Replayed += res.Replayed
		total.Ignored += res.Ignored
		total.JobEvents += res.JobEvents
		total.Reviews += res.Reviews
		total.DecodeErrors = append(total.DecodeErrors, res.DecodeErrors...)
		return nil
	})
	if err := indexer.Replay(ctx, logs, cfg.BatchSize, sink, logger); err != nil {
		return err
	}

	logger.Info("ingest complete",
		zap.Int("logs", total.Logs),
		zap.Int("replayed", total.Replayed),
		zap.Int("ignored", total.Ignored),
		zap.Int("job_events", total.JobEvents),
		zap.Int("reviews", total.Reviews),
		zap.Int("decode_errors", len(total.DecodeErrors)),
	)
	return nil
}

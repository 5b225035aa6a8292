package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobScope/internal/chain"
	"jobScope/internal/codec"
	"jobScope/internal/config"
	"jobScope/internal/indexer"
	"jobScope/internal/ingest"
	"jobScope/internal/storage"
	"jobScope/internal/storage/postgres"
)

// contracts parses the two marketplace addresses.
func contracts(marketplace, marketplaceData string) (common.Address, common.Address, error) {
	m, err := indexer.ParseAddress("marketplace", marketplace)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	d, err := indexer.ParseAddress("marketplace-data", marketplaceData)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return m, d, nil
}

func runConfig(cfg config.Config, marketplace, marketplaceData common.Address) indexer.RunConfig {
	return indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Addresses:         []common.Address{marketplace, marketplaceData},
		BatchSize:         cfg.BatchSize,
		Confirmations:     cfg.Confirmations,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		Follow:            cfg.Follow,
		PollInterval:      cfg.PollInterval,
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := required("rpc url", cfg.RPCURL); err != nil {
		return err
	}
	if err := required("pg dsn", cfg.PGDSN); err != nil {
		return err
	}
	marketplace, marketplaceData, err := contracts(cfg.Marketplace, cfg.MarketplaceData)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

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

	var sink indexer.Sink = ingestor
	if cfg.Out != "" {
		sink = indexer.Tee(indexer.LogSinkAdapter(storage.NewJsonlStorage(cfg.Out)), ingestor)
	}

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("marketplace", marketplace.Hex()),
		zap.String("marketplace_data", marketplaceData.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Uint64("confirmations", cfg.Confirmations),
		zap.Bool("follow", cfg.Follow),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return indexer.NewRunner(runConfig(cfg, marketplace, marketplaceData), chainClient, sink, logger).Run(ctx)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := required("rpc url", cfg.RPCURL); err != nil {
		return err
	}
	if err := required("output path", cfg.Out); err != nil {
		return err
	}
	marketplace, marketplaceData, err := contracts(cfg.Marketplace, cfg.MarketplaceData)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	logger.Info("fetch start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
	)

	sink := indexer.LogSinkAdapter(storage.NewJsonlStorage(cfg.Out))
	return indexer.NewRunner(runConfig(cfg, marketplace, marketplaceData), chainClient, sink, logger).Run(ctx)
}

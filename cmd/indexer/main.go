package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Job marketplace event indexer",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index marketplace logs from RPC into Postgres",
		RunE:  runIndexer,
	}
	chainFlags(runCmd, "./data/checkpoint.json")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	runCmd.Flags().String("out", "", "optional raw log JSONL copy")
	runCmd.Flags().Bool("follow", false, "keep polling for new blocks when --to is 0")
	runCmd.Flags().Duration("poll-interval", 5*time.Second, "poll interval in follow mode")
	root.AddCommand(runCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Dump raw marketplace logs from RPC to JSONL",
		RunE:  runFetch,
	}
	chainFlags(fetchCmd, "./data/fetch_checkpoint.json")
	fetchCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	root.AddCommand(fetchCmd)

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Replay a raw log JSONL dump into Postgres",
		RunE:  runIngest,
	}
	ingestCmd.Flags().String("in", "./data/logs.jsonl", "input raw logs JSONL")
	ingestCmd.Flags().String("errors", "./data/decode_errors.jsonl", "skipped log JSONL")
	ingestCmd.Flags().String("marketplace", "", "Marketplace contract address")
	ingestCmd.Flags().String("marketplace-data", "", "MarketplaceData contract address")
	ingestCmd.Flags().Uint64("batch-size", 2000, "blocks per ingestion batch")
	ingestCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	ingestCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(ingestCmd)

	timelineCmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print the field-level history of one job, decrypting content when a key is given",
		RunE:  runTimeline,
	}
	timelineCmd.Flags().Uint64("job", 0, "job id")
	timelineCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	timelineCmd.Flags().String("redis-addr", "", "Redis address for content and public key cache")
	timelineCmd.Flags().String("rpc", "", "RPC URL for public keys missing from the store")
	timelineCmd.Flags().String("marketplace-data", "", "MarketplaceData contract address")
	timelineCmd.Flags().String("key", "", "viewer private key (hex)")
	timelineCmd.Flags().String("key-file", "", "file holding the viewer private key (hex)")
	timelineCmd.Flags().Int("fanout", 8, "concurrent public key and content lookups")
	timelineCmd.Flags().Float64("rpc-rate", 10, "public key RPC calls per second")
	timelineCmd.Flags().Duration("pubkey-ttl", 24*time.Hour, "public key cache TTL")
	timelineCmd.Flags().String("out", "", "output JSONL path (default stdout)")
	timelineCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(timelineCmd)

	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the Postgres schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE:      runMigrate,
	}
	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(migrateCmd)

	return root
}

// chainFlags are shared by the commands that read logs from RPC.
func chainFlags(cmd *cobra.Command, checkpoint string) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means safe head")
	cmd.Flags().String("marketplace", "", "Marketplace contract address")
	cmd.Flags().String("marketplace-data", "", "MarketplaceData contract address")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	cmd.Flags().Uint64("confirmations", 12, "blocks behind head considered final")
	cmd.Flags().String("checkpoint", checkpoint, "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

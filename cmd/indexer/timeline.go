package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobScope/internal/blobstore"
	"jobScope/internal/chain"
	"jobScope/internal/config"
	"jobScope/internal/indexer"
	"jobScope/internal/session"
	"jobScope/internal/storage/postgres"
	"jobScope/internal/timeline"
)

// timelineEntry is one output line: an event, the job after it, the fields
// it changed and, for a viewer, its resolved content.
type timelineEntry struct {
	timeline.EventDiff
	Content *session.Content `json:"content,omitempty"`
}

func runTimeline(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTimeline(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := required("pg dsn", cfg.PGDSN); err != nil {
		return err
	}
	viewer, err := loadViewerKey(cfg.Key, cfg.KeyFile)
	if err != nil {
		return err
	}
	if viewer != nil && cfg.RedisAddr == "" {
		return fmt.Errorf("redis addr is required to resolve content")
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	job, err := store.FindJob(ctx, cfg.Job)
	if err != nil {
		return fmt.Errorf("find job %d: %w", cfg.Job, err)
	}
	events, err := store.JobEvents(ctx, cfg.Job)
	if err != nil {
		return err
	}

	contents := make(map[string]*session.Content)
	if viewer != nil {
		client, err := blobstore.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		resolver, closeResolver, err := newResolver(ctx, cfg, store, client, logger)
		if err != nil {
			return err
		}
		defer closeResolver()

		pipeline := session.NewPipeline(resolver, blobstore.NewRedisStore(client, ""), cfg.Fanout, logger)
		resolved, err := pipeline.Resolve(ctx, job, events, session.Viewer{Key: viewer})
		if err != nil {
			return err
		}
		for i := range resolved {
			contents[resolved[i].EventID] = &resolved[i]
		}
	}

	out := stdoutWriter(cmd.OutOrStdout())
	if cfg.Out != "" {
		if out, err = newJSONLWriter(cfg.Out, false); err != nil {
			return err
		}
	}

	written := 0
	for diff, err := range timeline.ComputeDiffs(events) {
		if err != nil {
			out.Close()
			return err
		}
		if err := out.Write(timelineEntry{EventDiff: diff, Content: contents[diff.Event.ID]}); err != nil {
			out.Close()
			return err
		}
		written++
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.Info("timeline complete",
		zap.Uint64("job", cfg.Job),
		zap.Int("events", written),
		zap.Int("contents", len(contents)),
	)
	return nil
}

// newResolver looks public keys up in the store, then on chain when an RPC
// URL is configured, behind a Redis cache.
func newResolver(ctx context.Context, cfg config.TimelineConfig, store *postgres.Store, client *redis.Client, logger *zap.Logger) (session.Resolver, func(), error) {
	resolvers := []session.Resolver{session.NewStoreResolver(store)}
	closer := func() {}
	if cfg.RPCURL != "" {
		dataAddr, err := indexer.ParseAddress("marketplace-data", cfg.MarketplaceData)
		if err != nil {
			return nil, nil, err
		}
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rpc: %w", err)
		}
		closer = chainClient.Close
		resolvers = append(resolvers, session.NewChainResolver(chainClient, dataAddr, cfg.RPCRate))
	}
	return session.NewCachedResolver(client, session.FirstOf(resolvers...), cfg.PubkeyTTL, logger), closer, nil
}

// loadViewerKey returns nil when no key is configured.
func loadViewerKey(key, keyFile string) (*ecdsa.PrivateKey, error) {
	switch {
	case key != "" && keyFile != "":
		return nil, fmt.Errorf("use either key or key-file, not both")
	case keyFile != "":
		raw, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		key = string(raw)
	case key == "":
		return nil, nil
	}
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(key), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse viewer key: %w", err)
	}
	return priv, nil
}

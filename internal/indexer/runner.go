package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"jobScope/internal/model"
)

// ChainReader is the subset of the chain client the runner depends on.
type ChainReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	Confirmations     uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	// Follow keeps polling for new blocks once the safe head is reached.
	// It only applies when ToBlock is zero.
	Follow       bool
	PollInterval time.Duration
}

// Runner streams confirmed logs from the chain into a Sink, one block range
// at a time.
type Runner struct {
	cfg        RunConfig
	chain      ChainReader
	sink       Sink
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient ChainReader, sink Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		sink:       sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	scope := Scope{ChainID: chainID.Uint64(), Contracts: r.cfg.Addresses}

	from := r.cfg.FromBlock
	cp, ok, err := r.checkpoint.Load(scope)
	if err != nil {
		return err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	for {
		to, ready, err := r.target(ctx)
		if err != nil {
			return err
		}

		if ready && from <= to {
			next, err := r.syncRange(ctx, scope, from, to)
			if err != nil {
				return err
			}
			from = next
		} else {
			r.logger.Debug("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		}

		if r.cfg.ToBlock != 0 || !r.cfg.Follow {
			return nil
		}

		timer := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// target is the last block to process in this pass: the configured end block
// or the confirmed head. ready is false while no block is confirmed yet.
func (r *Runner) target(ctx context.Context) (uint64, bool, error) {
	head, err := retry(ctx, r.policy(), "latest block", r.chain.LatestBlockNumber)
	if err != nil {
		return 0, false, fmt.Errorf("get latest block: %w", err)
	}
	safe, ok := SafeHead(head, r.cfg.Confirmations)
	if !ok {
		return 0, false, nil
	}
	if r.cfg.ToBlock != 0 && r.cfg.ToBlock < safe {
		return r.cfg.ToBlock, true, nil
	}
	return safe, true, nil
}

// syncRange delivers [from, to] and returns the next block to process.
func (r *Runner) syncRange(ctx context.Context, scope Scope, from, to uint64) (uint64, error) {
	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return from, err
	}

	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return from, err
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := retry(ctx, r.policy(), "filter logs", func(ctx context.Context) ([]types.Log, error) {
			return r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Addresses, r.cfg.Topic0)
		})
		if err != nil {
			return from, fmt.Errorf("filter logs: %w", err)
		}

		ingestedAt := time.Now().UTC()
		records := make([]model.LogRecord, 0, len(logs))
		seen := make(map[string]struct{}, len(logs))
		for _, log := range logs {
			id := model.LogID(log.BlockNumber, uint64(log.Index))
			if log.Removed {
				r.logger.Warn("skip removed log", zap.String("log", id))
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			ts, err := retry(ctx, r.policy(), "block timestamp", func(ctx context.Context) (uint64, error) {
				return r.chain.BlockTimestamp(ctx, log.BlockNumber)
			})
			if err != nil {
				return from, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			records = append(records, buildLogRecord(scope.ChainID, log, ts, ingestedAt))
		}
		SortLogs(records)

		if err := r.sink.HandleBlocks(ctx, model.GroupByBlock(records)); err != nil {
			return from, fmt.Errorf("handle blocks %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		if err := r.checkpoint.Save(scope, blockRange.To); err != nil {
			return from, err
		}
		from = blockRange.To + 1

		r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return from, nil
}

// Package ingest folds ordered marketplace logs into entity write sets.
//
// ArbitrationRefused clears the job's arbitrator before its refusal is
// counted, so the count lands on the zero address. That arbitrator is created
// on demand instead of failing the batch with a MissingEntityError, which is
// what a strict registered-counterpart lookup would do. Whether the refusing
// arbitrator should be credited instead is an open product question.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"jobScope/internal/codec"
	"jobScope/internal/model"
	"jobScope/internal/storage"
)

// Config identifies the marketplace deployment being ingested.
type Config struct {
	Marketplace     common.Address
	MarketplaceData common.Address
	// Stream names the cursor; defaults to the marketplace address.
	Stream string
}

// Result summarizes one ingestion pass.
type Result struct {
	FromBlock    uint64
	ToBlock      uint64
	Blocks       int
	Logs         int
	Ignored      int
	Replayed     int
	JobEvents    int
	Reviews      int
	Entities     int
	DecodeErrors []model.DecodeError
}

// Ingestor folds ordered blocks of marketplace logs into derived entities.
// One Ingestor must not run concurrently with another on the same store.
type Ingestor struct {
	cfg     Config
	store   storage.Gateway
	decoder *codec.Decoder
	logger  *zap.Logger
}

// NewIngestor builds an Ingestor with its dependencies.
func NewIngestor(cfg Config, store storage.Gateway, decoder *codec.Decoder, logger *zap.Logger) (*Ingestor, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if cfg.Marketplace == (common.Address{}) || cfg.MarketplaceData == (common.Address{}) {
		return nil, fmt.Errorf("marketplace and marketplace data addresses are required")
	}
	if cfg.Stream == "" {
		cfg.Stream = "marketplace:" + cfg.Marketplace.Hex()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{cfg: cfg, store: store, decoder: decoder, logger: logger}, nil
}

// Ingest processes blocks in order and commits the resulting entities in one
// write. Any fatal error aborts the pass before the commit so that it can be
// retried from the same starting point. Logs at or before the stored cursor
// are skipped, which makes re-delivery of a committed range a no-op.
func (in *Ingestor) Ingest(ctx context.Context, blocks []model.Block) (Result, error) {
	var result Result
	if len(blocks) == 0 {
		return result, nil
	}
	result.FromBlock = blocks[0].Number
	result.ToBlock = blocks[len(blocks)-1].Number

	cursor, err := in.store.LoadCursor(ctx, in.cfg.Stream)
	if err != nil {
		return result, fmt.Errorf("load cursor: %w", err)
	}

	b := newBatch(in.store)
	last := cursor
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Blocks++
		for _, log := range block.Logs {
			result.Logs++
			id := log.ID()
			if cursor != "" && id <= cursor {
				result.Replayed++
				continue
			}
			if err := in.process(ctx, b, log, &result); err != nil {
				return result, err
			}
			last = id
		}
	}

	set := b.writeSet()
	if last != cursor {
		set.Cursor = &storage.Cursor{Stream: in.cfg.Stream, LogID: last}
	}
	result.JobEvents = len(set.JobEvents)
	result.Reviews = len(set.Reviews)
	result.Entities = set.Size()
	if set.Empty() {
		return result, nil
	}
	if err := in.store.Commit(ctx, set); err != nil {
		return result, fmt.Errorf("commit batch: %w", err)
	}

	in.logger.Info("batch ingested",
		zap.Uint64("from", result.FromBlock),
		zap.Uint64("to", result.ToBlock),
		zap.Int("logs", result.Logs),
		zap.Int("job_events", result.JobEvents),
		zap.Int("reviews", result.Reviews),
		zap.Int("decode_errors", len(result.DecodeErrors)),
		zap.Int("replayed", result.Replayed),
	)
	return result, nil
}

func (in *Ingestor) process(ctx context.Context, b *batch, log model.LogRecord, result *Result) error {
	var domain codec.Domain
	switch log.Address {
	case in.cfg.Marketplace:
		domain = codec.DomainMarketplace
	case in.cfg.MarketplaceData:
		domain = codec.DomainMarketplaceData
	default:
		result.Ignored++
		in.logger.Debug("ignore log from unknown contract", zap.String("log", log.ID()), zap.String("address", log.Address.Hex()))
		return nil
	}

	kind, ok := in.decoder.Resolve(log.Topic0())
	if !ok || kind.Domain() != domain {
		result.Ignored++
		in.logger.Debug("ignore unknown topic", zap.String("log", log.ID()), zap.String("topic0", log.Topic0().Hex()))
		return nil
	}

	event, err := in.decoder.Decode(log)
	if err != nil {
		return in.decodeFailure(log, nil, err, result)
	}
	in.logger.Debug("dispatch", zap.String("log", log.ID()), zap.Stringer("kind", kind))

	switch ev := event.(type) {
	case codec.JobEventLog:
		return in.applyJobEvent(ctx, b, log, ev, result)
	case codec.UserRegistered, codec.UserUpdated, codec.ArbitratorRegistered, codec.ArbitratorUpdated:
		return in.applyRegistry(ctx, b, log, ev)
	default:
		m, err := b.loadMarketplace(ctx, in.cfg.Marketplace, in.cfg.MarketplaceData)
		if err != nil {
			return err
		}
		applyMarketplace(m, event)
		return nil
	}
}

// decodeFailure records a recoverable decode error. Anything else is fatal.
func (in *Ingestor) decodeFailure(log model.LogRecord, ev *codec.JobEventLog, err error, result *Result) error {
	var decodeErr *codec.DecodeError
	if !errors.As(err, &decodeErr) {
		return fmt.Errorf("decode log %s: %w", log.ID(), err)
	}
	record := model.DecodeError{
		LogID:       log.ID(),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		Topic0:      log.Topic0(),
		Error:       err.Error(),
	}
	if ev != nil {
		jobID, eventType := ev.JobID, ev.Type
		record.JobID = &jobID
		record.EventType = &eventType
	}
	result.DecodeErrors = append(result.DecodeErrors, record)
	in.logger.Warn("skip undecodable log", zap.String("log", record.LogID), zap.Error(err))
	return nil
}

// HandleBlocks ingests one delivered range, so an Ingestor can sit directly
// behind the log runner.
func (in *Ingestor) HandleBlocks(ctx context.Context, blocks []model.Block) error {
	_, err := in.Ingest(ctx, blocks)
	return err
}

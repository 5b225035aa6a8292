package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"jobScope/internal/model"
)

// Replay delivers previously fetched logs to a sink in block ranges of at
// most batchSize blocks, in (block, log index) order.
func Replay(ctx context.Context, logs []model.LogRecord, batchSize uint64, sink Sink, logger *zap.Logger) error {
	if batchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(logs) == 0 {
		return nil
	}

	ordered := append([]model.LogRecord(nil), logs...)
	SortLogs(ordered)
	blocks := model.GroupByBlock(ordered)

	start := 0
	for start < len(blocks) {
		if err := ctx.Err(); err != nil {
			return err
		}
		limit := blocks[start].Number + batchSize
		end := start
		for end < len(blocks) && blocks[end].Number < limit {
			end++
		}
		chunk := blocks[start:end]
		if err := sink.HandleBlocks(ctx, chunk); err != nil {
			return fmt.Errorf("handle blocks %d-%d: %w", chunk[0].Number, chunk[len(chunk)-1].Number, err)
		}
		logger.Info("replayed range", zap.Uint64("from", chunk[0].Number), zap.Uint64("to", chunk[len(chunk)-1].Number), zap.Int("blocks", len(chunk)))
		start = end
	}
	return nil
}

package indexer

import (
	"context"

	"jobScope/internal/model"
	"jobScope/internal/storage"
)

// Sink receives each delivered range of blocks in order. An error stops the
// runner before the checkpoint advances.
type Sink interface {
	HandleBlocks(ctx context.Context, blocks []model.Block) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, blocks []model.Block) error

func (f SinkFunc) HandleBlocks(ctx context.Context, blocks []model.Block) error {
	return f(ctx, blocks)
}

// LogSinkAdapter writes the raw logs of every range to a LogSink.
func LogSinkAdapter(sink storage.LogSink) Sink {
	return SinkFunc(func(_ context.Context, blocks []model.Block) error {
		var logs []model.LogRecord
		for _, block := range blocks {
			logs = append(logs, block.Logs...)
		}
		return sink.PutLogBatch(logs)
	})
}

// Tee hands every range to each sink in turn.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, blocks []model.Block) error {
		for _, sink := range sinks {
			if err := sink.HandleBlocks(ctx, blocks); err != nil {
				return err
			}
		}
		return nil
	})
}

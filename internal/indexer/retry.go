package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// retryPolicy doubles the delay after each failed attempt, up to maxBackoff.
type retryPolicy struct {
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

func (r *Runner) policy() retryPolicy {
	return retryPolicy{retries: r.cfg.MaxRetries, backoff: r.cfg.RetryBackoff, logger: r.logger}
}

// retry runs fn until it succeeds, the retries are spent, or ctx ends. op
// names the call in warnings.
func retry[T any](ctx context.Context, p retryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	retries := max(p.retries, 0)
	delay := p.backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil {
			return value, ctx.Err()
		}
		if attempt >= retries {
			return value, err
		}
		p.logger.Warn(op+" failed, retrying", zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxBackoff)
	}
}

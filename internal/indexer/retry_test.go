package indexer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), retryPolicy{retries: 3, backoff: time.Millisecond}, "probe", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("retry: got %d err %v", got, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	_, err := retry(context.Background(), retryPolicy{retries: 2, backoff: time.Millisecond}, "probe", func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retry(ctx, retryPolicy{retries: 10, backoff: time.Hour}, "probe", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

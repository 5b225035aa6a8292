package postgres

import (
	"math/big"
	"testing"

	"jobScope/internal/model"
)

func TestNumericRoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	for _, v := range []*big.Int{nil, big.NewInt(0), big.NewInt(42), huge} {
		got, err := parseNumeric("amount", numeric(v))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		want := v
		if want == nil {
			want = new(big.Int)
		}
		if got.Cmp(want) != 0 {
			t.Fatalf("numeric mismatch: %s vs %s", got, want)
		}
	}
	if _, err := parseNumeric("amount", "1.5"); err == nil {
		t.Fatalf("expected error for fractional numeric")
	}
}

func TestBatchesQueueOneStatementPerRow(t *testing.T) {
	jobs := jobBatch([]model.Job{{ID: 1}, {ID: 2}})
	if jobs.Len() != 2 {
		t.Fatalf("job batch len=%d", jobs.Len())
	}
	events, err := jobEventBatch([]model.JobEvent{{ID: model.LogID(1, 0), Details: model.JobRatedDetails{Rating: 5}}})
	if err != nil {
		t.Fatalf("event batch: %v", err)
	}
	if events.Len() != 1 {
		t.Fatalf("event batch len=%d", events.Len())
	}
	if reviewBatch(nil).Len() != 0 {
		t.Fatalf("empty review batch should queue nothing")
	}
}

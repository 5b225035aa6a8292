package indexer

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
	for _, r := range got {
		if r.Len() != 2 {
			t.Fatalf("range %+v has length %d", r, r.Len())
		}
	}
}

func TestSplitRangeUpToMaxBlock(t *testing.T) {
	const top = ^uint64(0)
	got, err := SplitRange(top-4, top, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []BlockRange{{From: top - 4, To: top - 2}, {From: top - 1, To: top}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestSafeHead(t *testing.T) {
	if got, ok := SafeHead(100, 12); !ok || got != 88 {
		t.Fatalf("safe head mismatch: %d %v", got, ok)
	}
	if got, ok := SafeHead(100, 0); !ok || got != 100 {
		t.Fatalf("safe head without confirmations mismatch: %d %v", got, ok)
	}
	if _, ok := SafeHead(5, 12); ok {
		t.Fatalf("expected no safe head on a short chain")
	}
}

package indexer

import "testing"

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("marketplace", " 0x1111111111111111111111111111111111111111 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Hex() != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("address mismatch: %s", addr.Hex())
	}
	if _, err := ParseAddress("marketplace", ""); err == nil {
		t.Fatalf("expected error for empty address")
	}
	if _, err := ParseAddress("marketplace", "0x12"); err == nil {
		t.Fatalf("expected error for short address")
	}
}

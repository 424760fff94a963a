package postgres

import (
	"testing"

	"talentr/internal/config"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(config.Config{})
	if err == nil {
		t.Fatalf("expected error for missing POSTGRES_DSN")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	if _, _, err := decodeCursor("not-a-cursor"); err == nil {
		t.Fatalf("expected error for malformed cursor")
	}
	if _, _, err := decodeCursor("2025-06-01T12:00:00Z|"); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if got := normalizeLimit(0); got != 50 {
		t.Fatalf("default limit = %d, want 50", got)
	}
	if got := normalizeLimit(1000); got != 200 {
		t.Fatalf("capped limit = %d, want 200", got)
	}
}

package requestlog

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "requests.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{TraceID: "t1", Model: "nomic-embed-text", Provider: "ollama", Inputs: 1, Attempts: 1, Outcome: "success", LatencyMS: 12},
		{TraceID: "t2", Model: "nomic-embed-text", Provider: "ollama", Inputs: 3, Attempts: 5, Outcome: "upstream_error", ErrorMessage: "connection refused", LatencyMS: 840},
	}
	for _, e := range entries {
		if err := s.Write(ctx, e); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].TraceID != "t2" || got[1].TraceID != "t1" {
		t.Errorf("Recent() order = %s, %s; want t2, t1", got[0].TraceID, got[1].TraceID)
	}
	if got[0].ErrorMessage != "connection refused" {
		t.Errorf("error message = %q, want preserved", got[0].ErrorMessage)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not populated on write")
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Write(ctx, Entry{TraceID: "t", Outcome: "success"}); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Recent(3) returned %d entries", len(got))
	}
}

func TestNoopWriter(t *testing.T) {
	if err := (NoopWriter{}).Write(context.Background(), Entry{}); err != nil {
		t.Errorf("NoopWriter.Write() = %v, want nil", err)
	}
}

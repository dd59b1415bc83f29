package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func mustOpen(t *testing.T, cfg Config) *Log {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "audit_test.db")
	}
	l, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// waitRecords polls until the writer goroutine has applied n records.
func waitRecords(t *testing.T, l *Log, n int) []Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		recs, err := l.Query(context.Background(), QueryOpts{})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(recs) >= n {
			return recs
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d records, got %d", n, len(recs))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRecordAndQuery(t *testing.T) {
	l := mustOpen(t, Config{StoreSuggestion: true})
	l.Record(Record{RequestID: "r1", KeyDigest: Digest("the fox"), Source: "provider", Suggestion: " jumps", LatencyMs: 12})
	l.Record(Record{RequestID: "r2", KeyDigest: Digest("the dog"), Source: "fallback", ErrorKind: "timeout", LatencyMs: 5000})

	recs := waitRecords(t, l, 2)
	if recs[0].RequestID != "r2" || recs[1].RequestID != "r1" {
		t.Fatalf("expected newest first, got %+v", recs)
	}
	if recs[1].Suggestion != " jumps" || recs[0].ErrorKind != "timeout" {
		t.Fatalf("fields not round-tripped: %+v", recs)
	}

	only, err := l.Query(context.Background(), QueryOpts{Source: "fallback"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(only) != 1 || only[0].Source != "fallback" {
		t.Fatalf("source filter failed: %+v", only)
	}
}

func TestSuggestionNotStoredByDefault(t *testing.T) {
	l := mustOpen(t, Config{})
	l.Record(Record{KeyDigest: "k", Source: "cache", Suggestion: "secret words"})
	recs := waitRecords(t, l, 1)
	if recs[0].Suggestion != "" {
		t.Fatalf("suggestion stored without opt-in: %q", recs[0].Suggestion)
	}
}

func TestSummary(t *testing.T) {
	l := mustOpen(t, Config{})
	for _, src := range []string{"cache", "cache", "provider", "fallback"} {
		l.Record(Record{KeyDigest: "k", Source: src})
	}
	waitRecords(t, l, 4)
	sum, err := l.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum["cache"] != 2 || sum["provider"] != 1 || sum["fallback"] != 1 {
		t.Fatalf("unexpected summary %v", sum)
	}
}

func TestCleanupRemovesOld(t *testing.T) {
	l := mustOpen(t, Config{RetentionDays: 1})
	l.Record(Record{KeyDigest: "old", Source: "cache", CreatedAt: time.Now().Add(-72 * time.Hour)})
	l.Record(Record{KeyDigest: "new", Source: "cache"})
	waitRecords(t, l, 2)
	n, err := l.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
}

func TestCloseDrainsAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drain.db")
	l, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 20; i++ {
		l.Record(Record{KeyDigest: "k", Source: "provider"})
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	l.Record(Record{KeyDigest: "k", Source: "provider"})

	l2 := mustOpen(t, Config{Path: path})
	sum, err := l2.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum["provider"] != 20 {
		t.Fatalf("expected 20 drained records, got %v", sum)
	}
}

func TestDigest(t *testing.T) {
	a, b := Digest("hello"), Digest("hello")
	if a != b || len(a) != 32 {
		t.Fatalf("digest not stable or wrong length: %q", a)
	}
	if Digest("hello!") == a {
		t.Fatalf("distinct inputs collided")
	}
	var nilLog *Log
	nilLog.Record(Record{})
	if nilLog.Dropped() != 0 || nilLog.Close() != nil {
		t.Fatalf("nil log must be inert")
	}
}

package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func stepClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func TestBeginFinishRoundTrip(t *testing.T) {
	store := openTestStore(t)
	store.now = stepClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), 90*time.Second)
	ctx := context.Background()

	run, err := store.Begin(ctx, "run-1", "/videos/a.mp4", "ko", "large-v3")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	run.Status = StatusCompleted
	run.OutputPath = "/subs/a_20260501_120000.srt"
	run.Segments = 42
	run.BatchesCorrected = 1
	run.BatchesReverted = 1
	run.CorrectionEnabled = true
	if err := store.Finish(ctx, run); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusCompleted || got.Segments != 42 || got.OutputPath != run.OutputPath {
		t.Fatalf("unexpected run %+v", got)
	}
	if !got.CorrectionEnabled || got.BatchesReverted != 1 || got.Model != "large-v3" {
		t.Fatalf("unexpected correction fields %+v", got)
	}
	if got.Duration() != 90*time.Second {
		t.Fatalf("expected 90s duration, got %s", got.Duration())
	}
}

func TestFinishRecordsFailure(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	run, err := store.Begin(ctx, "run-fail", "/videos/b.mkv", "", "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	run.Status = StatusFailed
	run.ErrorKind = "external_tool"
	run.ErrorMessage = "ffmpeg exited 1"
	if err := store.Finish(ctx, run); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err := store.Get(ctx, "run-fail")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ErrorKind != "external_tool" || got.ErrorMessage != "ffmpeg exited 1" || got.Language != "" {
		t.Fatalf("unexpected failure record %+v", got)
	}
}

func TestRecentNewestFirstWithLimit(t *testing.T) {
	store := openTestStore(t)
	store.now = stepClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), time.Minute)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Begin(ctx, id, "/videos/"+id+".mp4", "ko", ""); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
	}
	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "c" || runs[1].RunID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
	if runs[0].Status != StatusRunning || runs[0].FinishedAt != nil {
		t.Fatalf("expected running entry, got %+v", runs[0])
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.Finish(context.Background(), &Run{RunID: "nope"}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from Finish, got %v", err)
	}
}

func TestPruneKeepsRunningEntries(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	ctx := context.Background()
	old, err := store.Begin(ctx, "old", "/v/old.mp4", "", "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	old.Status = StatusCompleted
	if err := store.Finish(ctx, old); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := store.Begin(ctx, "stuck", "/v/stuck.mp4", "", ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	removed, err := store.Prune(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}
	if _, err := store.Get(ctx, "stuck"); err != nil {
		t.Fatalf("running entry should survive prune: %v", err)
	}
}

func TestReopenChecksSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestBeginRequiresRunID(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Begin(context.Background(), " ", "/v.mp4", "", ""); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

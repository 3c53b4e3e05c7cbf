package library_test

import (
	"context"
	"errors"
	"testing"

	"shellac/internal/services"
	"shellac/internal/testsupport"
)

func TestCheckpointLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.LatestCheckpoint(ctx, "/music"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found before any run, got %v", err)
	}

	if err := store.CreateCheckpoint(ctx, "run-1", "/music", "incremental"); err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if err := store.MarkProcessed(ctx, "run-1", []string{"/music/a.mp3", "/music/b.mp3"}, 2, 0, 0, 0); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := store.MarkProcessed(ctx, "run-1", []string{"/music/c.mp3"}, 0, 1, 0, 0); err != nil {
		t.Fatalf("MarkProcessed second chunk: %v", err)
	}

	cp, err := store.LatestCheckpoint(ctx, "/music")
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if cp.RunID != "run-1" || cp.Added != 2 || cp.Updated != 1 || cp.Completed {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	processed, err := store.ProcessedPaths(ctx, "run-1")
	if err != nil {
		t.Fatalf("ProcessedPaths: %v", err)
	}
	if len(processed) != 3 {
		t.Fatalf("expected 3 processed paths, got %d", len(processed))
	}
	if _, ok := processed["/music/b.mp3"]; !ok {
		t.Fatalf("missing path in %v", processed)
	}

	if err := store.CompleteCheckpoint(ctx, "run-1"); err != nil {
		t.Fatalf("CompleteCheckpoint: %v", err)
	}
	if _, err := store.LatestCheckpoint(ctx, "/music"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("completed run must not be resumable, got %v", err)
	}
	processed, err = store.ProcessedPaths(ctx, "run-1")
	if err != nil {
		t.Fatalf("ProcessedPaths after complete: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("path set must be dropped on completion, got %d", len(processed))
	}
}

func TestCheckpointUnknownRun(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	err := store.MarkProcessed(context.Background(), "ghost", []string{"/music/a.mp3"}, 1, 0, 0, 0)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error for unknown run, got %v", err)
	}
}

func TestCheckpointPerRoot(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.CreateCheckpoint(ctx, "run-a", "/music", "full"); err != nil {
		t.Fatalf("CreateCheckpoint a: %v", err)
	}
	if err := store.CreateCheckpoint(ctx, "run-b", "/other", "full"); err != nil {
		t.Fatalf("CreateCheckpoint b: %v", err)
	}

	cp, err := store.LatestCheckpoint(ctx, "/other")
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if cp.RunID != "run-b" || cp.Mode != "full" {
		t.Fatalf("wrong checkpoint for root: %+v", cp)
	}
}

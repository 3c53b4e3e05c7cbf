package library_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"shellac/internal/hashing"
	"shellac/internal/library"
	"shellac/internal/services"
	"shellac/internal/testsupport"
)

func TestInsertBatchAndGetByPaths(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	records := []*library.Record{
		testsupport.NewRecord("/music/a.mp3", "Artist A", "Song One", "Album", 2001),
		testsupport.NewRecord("/music/b.mp3", "Artist B", "Song Two", "Album", 2002),
	}
	result, err := store.InsertBatch(ctx, records)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if result.Succeeded != 2 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	found, err := store.GetByPaths(ctx, []string{"/music/a.mp3", "/music/b.mp3", "/music/missing.mp3"})
	if err != nil {
		t.Fatalf("GetByPaths: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 records, got %d", len(found))
	}
	got := found["/music/a.mp3"]
	if got == nil || got.Artist != "Artist A" || got.Year != 2001 || !got.IsActive {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.IndexedAt.IsZero() || got.LastVerified.IsZero() {
		t.Fatal("timestamps must be stamped on insert")
	}
}

func TestBatchInsertEquivalentToSequential(t *testing.T) {
	ctx := context.Background()

	// 25 records at chunk size 10 spans three chunks.
	makeRecords := func() []*library.Record {
		records := make([]*library.Record, 0, 25)
		for i := 0; i < 25; i++ {
			records = append(records, testsupport.NewRecord(
				fmt.Sprintf("/music/%02d.mp3", i), "Artist", fmt.Sprintf("Song %02d", i), "Album", 2000))
		}
		return records
	}
	paths := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		paths = append(paths, fmt.Sprintf("/music/%02d.mp3", i))
	}

	batchStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if result, err := batchStore.InsertBatch(ctx, makeRecords()); err != nil || result.Succeeded != 25 {
		t.Fatalf("batch insert: %v, %+v", err, result)
	}

	singleStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	for _, record := range makeRecords() {
		if result, err := singleStore.InsertBatch(ctx, []*library.Record{record}); err != nil || result.Succeeded != 1 {
			t.Fatalf("single insert %s: %v, %+v", record.FilePath, err, result)
		}
	}

	fromBatch, err := batchStore.GetByPaths(ctx, paths)
	if err != nil {
		t.Fatalf("GetByPaths batch store: %v", err)
	}
	fromSingle, err := singleStore.GetByPaths(ctx, paths)
	if err != nil {
		t.Fatalf("GetByPaths single store: %v", err)
	}
	if len(fromBatch) != 25 || len(fromSingle) != 25 {
		t.Fatalf("expected 25 records in both stores, got %d/%d", len(fromBatch), len(fromSingle))
	}
	for _, path := range paths {
		a := comparableRecord(fromBatch[path])
		b := comparableRecord(fromSingle[path])
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("records diverge for %s:\n%+v\n%+v", path, a, b)
		}
	}
}

// comparableRecord strips the fields that legitimately differ between two
// stores: the row id and the insert-time stamps.
func comparableRecord(r *library.Record) library.Record {
	clone := *r
	clone.ID = 0
	clone.IndexedAt = time.Time{}
	clone.LastVerified = time.Time{}
	clone.FileMTime = time.Time{}
	return clone
}

func TestInsertBatchRejectsDuplicateActivePath(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewRecord("/music/dup.mp3", "Artist", "Song", "Album", 2000)
	testsupport.SeedRecords(t, store, first)

	again := testsupport.NewRecord("/music/dup.mp3", "Artist", "Song", "Album", 2000)
	other := testsupport.NewRecord("/music/fresh.mp3", "Artist", "Other", "Album", 2000)
	result, err := store.InsertBatch(ctx, []*library.Record{again, other})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("fresh record should survive the duplicate, got %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].Path != "/music/dup.mp3" {
		t.Fatalf("expected one duplicate failure, got %+v", result.Failures)
	}
}

func TestInsertBatchReportsValidationFailures(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	bad := testsupport.NewRecord("/music/bad.mp3", "Artist", "Song", "Album", 123)
	good := testsupport.NewRecord("/music/good.mp3", "Artist", "Song", "Album", 2000)
	result, err := store.InsertBatch(context.Background(), []*library.Record{bad, good})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if result.Succeeded != 1 || len(result.Failures) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Failures[0].Path != "/music/bad.mp3" {
		t.Fatalf("wrong failure path: %+v", result.Failures)
	}
}

func TestUpdateBatch(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	record := testsupport.NewRecord("/music/track.mp3", "Artist", "Old Title", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	updated := testsupport.NewRecord("/music/track.mp3", "Artist", "New Title", "Album", 2001)
	missing := testsupport.NewRecord("/music/nowhere.mp3", "Artist", "Ghost", "Album", 2001)
	result, err := store.UpdateBatch(ctx, []*library.Record{updated, missing})
	if err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}
	if result.Succeeded != 1 || len(result.Failures) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Failures[0].Path != "/music/nowhere.mp3" {
		t.Fatalf("wrong failure: %+v", result.Failures)
	}

	found, err := store.GetByPaths(ctx, []string{"/music/track.mp3"})
	if err != nil {
		t.Fatalf("GetByPaths: %v", err)
	}
	got := found["/music/track.mp3"]
	if got == nil || got.Title != "New Title" || got.Year != 2001 {
		t.Fatalf("update did not stick: %+v", got)
	}
}

func TestDeactivateAllowsReinsert(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	record := testsupport.NewRecord("/music/cycle.mp3", "Artist", "Song", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	count, err := store.DeactivateBatch(ctx, []string{"/music/cycle.mp3", "/music/ghost.mp3"})
	if err != nil {
		t.Fatalf("DeactivateBatch: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deactivated, got %d", count)
	}

	found, err := store.GetByPaths(ctx, []string{"/music/cycle.mp3"})
	if err != nil {
		t.Fatalf("GetByPaths: %v", err)
	}
	if len(found) != 0 {
		t.Fatal("deactivated record must not surface as active")
	}

	// The partial unique index only guards active rows, so the path can
	// return to the library.
	again := testsupport.NewRecord("/music/cycle.mp3", "Artist", "Song", "Album", 2000)
	testsupport.SeedRecords(t, store, again)
}

func TestGetByHashes(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a := testsupport.NewRecord("/music/a.mp3", "Artist", "Same Song", "Album", 2000)
	b := testsupport.NewRecord("/music/b.mp3", "Artist", "Same Song", "Album", 2000)
	c := testsupport.NewRecord("/music/c.mp3", "Artist", "Different", "Album", 2000)
	testsupport.SeedRecords(t, store, a, b, c)

	found, err := store.GetByHashes(ctx, []string{a.MetadataHash, hashing.NoMetadataMarker, ""}, library.MetadataHashKind)
	if err != nil {
		t.Fatalf("GetByHashes: %v", err)
	}
	if len(found[a.MetadataHash]) != 2 {
		t.Fatalf("expected both records under the shared digest, got %d", len(found[a.MetadataHash]))
	}

	byContent, err := store.GetByHashes(ctx, []string{c.ContentHash}, library.ContentHashKind)
	if err != nil {
		t.Fatalf("GetByHashes content: %v", err)
	}
	if len(byContent[c.ContentHash]) != 1 || byContent[c.ContentHash][0].FilePath != "/music/c.mp3" {
		t.Fatalf("unexpected content lookup: %+v", byContent)
	}

	if _, err := store.GetByHashes(ctx, []string{"x"}, library.HashKind("bogus")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
}

func TestActiveByArtists(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedRecords(t, store,
		testsupport.NewRecord("/music/1.mp3", "Tiësto", "Adagio", "Album", 2004),
		testsupport.NewRecord("/music/2.mp3", "tiesto", "Traffic", "Album", 2003),
		testsupport.NewRecord("/music/3.mp3", "Other", "Song", "Album", 2003),
	)

	found, err := store.ActiveByArtists(ctx, []string{"TIESTO"})
	if err != nil {
		t.Fatalf("ActiveByArtists: %v", err)
	}
	if len(found["tiesto"]) != 2 {
		t.Fatalf("diacritic and case variants must share one artist key: %+v", found)
	}
}

func TestStatisticsAndPurge(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedRecords(t, store,
		testsupport.NewRecord("/music/a.mp3", "Artist A", "One", "Album", 2000),
		testsupport.NewRecord("/music/b.mp3", "Artist B", "Two", "Album", 2000),
	)
	if _, err := store.DeactivateBatch(ctx, []string{"/music/b.mp3"}); err != nil {
		t.Fatalf("DeactivateBatch: %v", err)
	}

	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalActive != 1 || stats.TotalInactive != 1 || stats.DistinctArtists != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Formats["mp3"] != 1 {
		t.Fatalf("unexpected formats: %+v", stats.Formats)
	}
	if stats.LastIndexedAt.IsZero() {
		t.Fatal("expected last indexed timestamp")
	}

	removed, err := store.PurgeInactive(ctx)
	if err != nil {
		t.Fatalf("PurgeInactive: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged, got %d", removed)
	}
	stats, err = store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics after purge: %v", err)
	}
	if stats.TotalInactive != 0 {
		t.Fatalf("purge left inactive rows: %+v", stats)
	}
}

func TestListActiveAndTouchVerified(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedRecords(t, store,
		testsupport.NewRecord("/music/a.mp3", "Artist", "One", "Album", 2000),
		testsupport.NewRecord("/music/b.mp3", "Artist", "Two", "Album", 2000),
	)

	var before time.Time
	err := store.ListActive(ctx, func(r *library.Record) error {
		before = r.LastVerified
		return nil
	})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := store.TouchVerified(ctx, []string{"/music/a.mp3", "/music/b.mp3"}); err != nil {
		t.Fatalf("TouchVerified: %v", err)
	}

	count := 0
	err = store.ListActive(ctx, func(r *library.Record) error {
		count++
		if !r.LastVerified.After(before) {
			t.Fatalf("last_verified not advanced for %s", r.FilePath)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 active records, got %d", count)
	}
}

func TestRecordValidate(t *testing.T) {
	base := testsupport.NewRecord("/music/x.mp3", "Artist", "Song", "Album", 2000)

	cases := []struct {
		name   string
		mutate func(*library.Record)
	}{
		{"empty path", func(r *library.Record) { r.FilePath = " " }},
		{"year too small", func(r *library.Record) { r.Year = 999 }},
		{"year too large", func(r *library.Record) { r.Year = 10000 }},
		{"negative duration", func(r *library.Record) { r.Duration = -1 }},
		{"negative size", func(r *library.Record) { r.FileSize = -1 }},
		{"missing hash", func(r *library.Record) { r.MetadataHash = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := *base
			tc.mutate(&record)
			if err := record.Validate(); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	ok := *base
	ok.Year = 0
	if err := ok.Validate(); err != nil {
		t.Fatalf("zero year must be valid: %v", err)
	}
}

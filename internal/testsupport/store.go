package testsupport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"shellac/internal/config"
	"shellac/internal/hashing"
	"shellac/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecord builds a valid record with a metadata hash derived from its tag
// fields. The content hash is synthesized from the path so records stay
// distinct without real files on disk.
func NewRecord(path, artist, title, album string, year int) *library.Record {
	computer := hashing.NewComputer(64)
	sum := sha256.Sum256([]byte(path))
	return &library.Record{
		FilePath:     path,
		Artist:       artist,
		Title:        title,
		Album:        album,
		Year:         year,
		Duration:     180,
		Format:       "mp3",
		FileSize:     1 << 20,
		MetadataHash: computer.MetadataHash(artist, title, album, year),
		ContentHash:  hex.EncodeToString(sum[:]),
		FileMTime:    time.Now().Add(-time.Hour),
	}
}

// SeedRecords inserts the records and fails the test on any rejection.
func SeedRecords(t testing.TB, store *library.Store, records ...*library.Record) {
	t.Helper()

	result, err := store.InsertBatch(context.Background(), records)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("seed failures: %+v", result.Failures)
	}
}

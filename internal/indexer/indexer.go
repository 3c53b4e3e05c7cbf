// Package indexer builds and refreshes the library index: it walks a root,
// extracts tags, computes both fingerprints, and writes records in chunked
// batches with a resumable checkpoint after every committed chunk.
package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"shellac/internal/config"
	"shellac/internal/hashing"
	"shellac/internal/library"
	"shellac/internal/logging"
	"shellac/internal/scanner"
	"shellac/internal/tags"
)

// Mode names for checkpoint rows and logs.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Options controls one indexing run.
type Options struct {
	// Full recomputes every file even when its mtime is unchanged.
	Full bool
	// Resume continues the most recent interrupted run for the root instead
	// of starting fresh.
	Resume bool
}

// Summary is the outcome of an indexing run. When a run resumes, the counters
// include the work committed before the interruption.
type Summary struct {
	RunID    string
	Root     string
	Mode     string
	Added    int
	Updated  int
	Skipped  int
	Failed   int
	Failures []library.Failure
	Elapsed  time.Duration
}

// Indexer wires the scanner, extractor, and hash computer to the store. One
// run holds the library lock for its whole duration; the store itself is the
// only serialization point for record writes.
type Indexer struct {
	cfg       *config.Config
	store     *library.Store
	scanner   *scanner.Scanner
	extractor tags.Extractor
	computer  *hashing.Computer
	logger    *slog.Logger
}

// New builds an Indexer around the given store and extractor.
func New(cfg *config.Config, store *library.Store, extractor tags.Extractor, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Indexer{
		cfg:       cfg,
		store:     store,
		scanner:   scanner.New(cfg.Scanner.Extensions, logger),
		extractor: extractor,
		computer:  hashing.NewComputer(cfg.Hashing.ChunkKiB),
		logger:    logger,
	}
}

func modeName(full bool) string {
	if full {
		return ModeFull
	}
	return ModeIncremental
}

// unchanged reports whether the on-disk file still carries the mtime the
// record was indexed with. Comparison is at second granularity; filesystems
// disagree below that.
func unchanged(record *library.Record, info os.FileInfo) bool {
	return record != nil && record.FileMTime.Unix() == info.ModTime().Unix()
}

func lockMessage(path string) string {
	return fmt.Sprintf("another run holds the library lock at %s", path)
}

func newRunID() string {
	return uuid.New().String()
}

package indexer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"shellac/internal/library"
	"shellac/internal/services"
	"shellac/internal/tags"
)

// Run indexes root. The run acquires the library lock, walks the tree, and
// commits records chunk by chunk; every committed chunk is checkpointed so an
// interrupted run resumes without reprocessing.
func (ix *Indexer) Run(ctx context.Context, root string, opts Options) (*Summary, error) {
	start := time.Now()

	lock := flock.New(ix.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "indexer", "run", "acquire library lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrStorage, "indexer", "run", lockMessage(ix.cfg.LockPath()), nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	paths, err := ix.scanner.Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	summary, processed, err := ix.prepareRun(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	pending := paths[:0:0]
	for _, path := range paths {
		if _, done := processed[path]; done {
			continue
		}
		pending = append(pending, path)
	}

	ix.logger.Info("indexing started",
		slog.String("component", "indexer"),
		slog.String("run_id", summary.RunID),
		slog.String("root", root),
		slog.String("mode", summary.Mode),
		slog.Int("files", len(pending)),
		slog.Int("already_processed", len(processed)))

	for _, chunk := range chunkPaths(pending, ix.store.ChunkSize()) {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, services.Wrap(services.ErrInterrupted, "indexer", "run", "canceled between chunks", err)
		}
		if err := ix.processChunk(ctx, summary, chunk); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}
	}

	if err := ix.store.CompleteCheckpoint(ctx, summary.RunID); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	ix.logger.Info("indexing finished",
		slog.String("component", "indexer"),
		slog.String("run_id", summary.RunID),
		slog.Int("added", summary.Added),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// prepareRun resolves the run identity: a fresh checkpoint, or the latest
// interrupted one when resuming. Resumed runs keep their counters and skip
// the paths already committed.
func (ix *Indexer) prepareRun(ctx context.Context, root string, opts Options) (*Summary, map[string]struct{}, error) {
	if opts.Resume {
		cp, err := ix.store.LatestCheckpoint(ctx, root)
		if err == nil {
			processed, perr := ix.store.ProcessedPaths(ctx, cp.RunID)
			if perr != nil {
				return nil, nil, perr
			}
			return &Summary{
				RunID:   cp.RunID,
				Root:    root,
				Mode:    cp.Mode,
				Added:   cp.Added,
				Updated: cp.Updated,
				Skipped: cp.Skipped,
				Failed:  cp.Failed,
			}, processed, nil
		}
		if !errors.Is(err, services.ErrNotFound) {
			return nil, nil, err
		}
	}

	runID := newRunID()
	mode := modeName(opts.Full)
	if err := ix.store.CreateCheckpoint(ctx, runID, root, mode); err != nil {
		return nil, nil, err
	}
	return &Summary{RunID: runID, Root: root, Mode: mode}, make(map[string]struct{}), nil
}

type outcome struct {
	path   string
	record *library.Record
	err    error
}

// processChunk runs extraction and hashing across the worker pool, classifies
// results against one batched path lookup, and commits inserts and updates
// before checkpointing the chunk.
func (ix *Indexer) processChunk(ctx context.Context, summary *Summary, chunk []string) error {
	existing, err := ix.store.GetByPaths(ctx, chunk)
	if err != nil {
		return err
	}

	var (
		added, updated, skipped, failed int
		toProcess                       []string
	)
	for _, path := range chunk {
		record := existing[path]
		if summary.Mode == ModeIncremental && record != nil {
			info, statErr := os.Stat(path)
			if statErr == nil && unchanged(record, info) {
				skipped++
				continue
			}
		}
		toProcess = append(toProcess, path)
	}

	var inserts, updates []*library.Record
	for _, out := range ix.extractAll(ctx, toProcess) {
		if out.err != nil {
			failed++
			summary.Failures = append(summary.Failures, library.Failure{Path: out.path, Err: out.err.Error()})
			ix.logger.Warn("file failed",
				slog.String("component", "indexer"),
				slog.String("path", out.path),
				slog.String("error", out.err.Error()))
			continue
		}
		if existing[out.path] != nil {
			updates = append(updates, out.record)
		} else {
			inserts = append(inserts, out.record)
		}
	}

	insertResult, err := ix.store.InsertBatch(ctx, inserts)
	if err != nil {
		return err
	}
	updateResult, err := ix.store.UpdateBatch(ctx, updates)
	if err != nil {
		return err
	}
	added += insertResult.Succeeded
	updated += updateResult.Succeeded
	for _, failure := range append(insertResult.Failures, updateResult.Failures...) {
		failed++
		summary.Failures = append(summary.Failures, failure)
	}

	if err := ix.store.MarkProcessed(ctx, summary.RunID, chunk, added, updated, skipped, failed); err != nil {
		return err
	}
	summary.Added += added
	summary.Updated += updated
	summary.Skipped += skipped
	summary.Failed += failed
	return nil
}

// extractAll fans extraction and hashing out across the configured workers.
// Results come back in no particular order; ordering is restored by the
// caller's classification against the chunk.
func (ix *Indexer) extractAll(ctx context.Context, paths []string) []outcome {
	if len(paths) == 0 {
		return nil
	}

	workers := ix.cfg.Scanner.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan string)
	results := make(chan outcome, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- ix.processFile(ctx, path)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]outcome, 0, len(paths))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// processFile extracts tags and computes both fingerprints for one file.
// A failed content hash is not an error; the marker digest rides along and
// keeps the file indexed but unmatchable by content.
func (ix *Indexer) processFile(ctx context.Context, path string) outcome {
	var fields struct {
		value tags.Fields
		err   error
	}
	fields.err = services.FileReadPolicy().Do(ctx, func() error {
		value, err := ix.extractor.Extract(path)
		if err != nil {
			return err
		}
		fields.value = value
		return nil
	})
	if fields.err != nil {
		return outcome{path: path, err: fields.err}
	}

	contentHash, hashErr := ix.computer.ContentHash(path)
	if hashErr != nil {
		ix.logger.Warn("content hash failed",
			slog.String("component", "indexer"),
			slog.String("path", path),
			slog.String("error", hashErr.Error()))
	}

	value := fields.value
	record := &library.Record{
		FilePath:     path,
		Artist:       value.Artist,
		Title:        value.Title,
		Album:        value.Album,
		Year:         value.Year,
		Duration:     value.Duration,
		Format:       value.Format,
		FileSize:     value.FileSize,
		MetadataHash: ix.computer.MetadataHash(value.Artist, value.Title, value.Album, value.Year),
		ContentHash:  contentHash,
		FileMTime:    value.ModTime,
	}
	return outcome{path: path, record: record}
}

func chunkPaths(paths []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var chunks [][]string
	for len(paths) > 0 {
		n := size
		if n > len(paths) {
			n = len(paths)
		}
		chunks = append(chunks, paths[:n])
		paths = paths[n:]
	}
	return chunks
}

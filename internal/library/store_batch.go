package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shellac/internal/services"
)

const insertRecordSQL = `INSERT INTO records (
    file_path, filename, artist, title, album, artist_norm, title_norm,
    year, duration, format, file_size, metadata_hash, content_hash,
    indexed_at, file_mtime, last_verified, is_active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`

const updateRecordSQL = `UPDATE records SET
    filename = ?, artist = ?, title = ?, album = ?, artist_norm = ?, title_norm = ?,
    year = ?, duration = ?, format = ?, file_size = ?, metadata_hash = ?, content_hash = ?,
    indexed_at = ?, file_mtime = ?, last_verified = ?
WHERE file_path = ? AND is_active = 1`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertArgs(r *Record, now string) []any {
	artistNorm, titleNorm := normalizedFields(r)
	return []any{
		r.FilePath, r.Filename, r.Artist, r.Title, r.Album, artistNorm, titleNorm,
		nullableInt(r.Year), r.Duration, r.Format, r.FileSize, r.MetadataHash, r.ContentHash,
		now, formatTime(r.FileMTime), now,
	}
}

func updateArgs(r *Record, now string) []any {
	artistNorm, titleNorm := normalizedFields(r)
	return []any{
		r.Filename, r.Artist, r.Title, r.Album, artistNorm, titleNorm,
		nullableInt(r.Year), r.Duration, r.Format, r.FileSize, r.MetadataHash, r.ContentHash,
		now, formatTime(r.FileMTime), now,
		r.FilePath,
	}
}

// InsertBatch inserts records as active rows in chunked transactions. A chunk
// that fails is retried record by record so one bad file cannot sink its
// neighbors. Records failing validation are reported without touching the
// database.
func (s *Store) InsertBatch(ctx context.Context, records []*Record) (BatchResult, error) {
	return s.writeBatch(ctx, records, insertRecordSQL, insertArgs, false)
}

// UpdateBatch rewrites the mutable columns of existing active records, keyed
// by file path. A path with no active record is reported as a failure.
func (s *Store) UpdateBatch(ctx context.Context, records []*Record) (BatchResult, error) {
	return s.writeBatch(ctx, records, updateRecordSQL, updateArgs, true)
}

func (s *Store) writeBatch(
	ctx context.Context,
	records []*Record,
	query string,
	args func(*Record, string) []any,
	requireRow bool,
) (BatchResult, error) {
	var result BatchResult

	valid := make([]*Record, 0, len(records))
	for _, record := range records {
		if err := record.Validate(); err != nil {
			path := ""
			if record != nil {
				path = record.FilePath
			}
			result.Failures = append(result.Failures, Failure{Path: path, Err: err.Error()})
			continue
		}
		valid = append(valid, record)
	}

	now := formatTime(time.Now())
	for _, chunk := range chunkRecords(valid, s.chunkSize) {
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrInterrupted, "library", "write batch", "canceled", err)
		}

		chunkErr := s.busy.Do(ctx, func() error {
			return s.writeChunk(ctx, chunk, query, args, now, requireRow, &result)
		})
		if chunkErr == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrInterrupted, "library", "write batch", "canceled", err)
		}

		// Chunk transaction failed. Retry each record on its own so only the
		// genuinely bad ones surface as failures.
		for _, record := range chunk {
			recordErr := s.busy.Do(ctx, func() error {
				return execOne(ctx, s.db, query, args(record, now), requireRow, record.FilePath)
			})
			if recordErr != nil {
				result.Failures = append(result.Failures, Failure{Path: record.FilePath, Err: recordErr.Error()})
				continue
			}
			result.Succeeded++
		}
	}

	return result, nil
}

// writeChunk applies one chunk inside a single transaction. requireRow updates
// tolerate zero-row statements inside the transaction; those are per-record
// failures, not transaction failures.
func (s *Store) writeChunk(
	ctx context.Context,
	chunk []*Record,
	query string,
	args func(*Record, string) []any,
	now string,
	requireRow bool,
	result *BatchResult,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	succeeded := 0
	var misses []Failure
	for _, record := range chunk {
		res, err := tx.ExecContext(ctx, query, args(record, now)...)
		if err != nil {
			return fmt.Errorf("write %s: %w", record.FilePath, err)
		}
		if requireRow {
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected for %s: %w", record.FilePath, err)
			}
			if affected == 0 {
				misses = append(misses, Failure{Path: record.FilePath, Err: "no active record"})
				continue
			}
		}
		succeeded++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	result.Succeeded += succeeded
	result.Failures = append(result.Failures, misses...)
	return nil
}

func execOne(ctx context.Context, db execer, query string, args []any, requireRow bool, path string) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if requireRow {
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("no active record for %s", path)
		}
	}
	return nil
}

// DeactivateBatch soft-deletes the active records at the given paths. Rows
// stay in place with is_active cleared; missing paths are ignored. The count
// of deactivated records is returned.
func (s *Store) DeactivateBatch(ctx context.Context, paths []string) (int, error) {
	now := formatTime(time.Now())
	total := 0
	for _, chunk := range chunkStrings(paths, maxQueryParams) {
		if err := ctx.Err(); err != nil {
			return total, services.Wrap(services.ErrInterrupted, "library", "deactivate", "canceled", err)
		}
		args := make([]any, 0, len(chunk)+1)
		args = append(args, now)
		for _, path := range chunk {
			args = append(args, path)
		}
		query := fmt.Sprintf(
			"UPDATE records SET is_active = 0, last_verified = ? WHERE is_active = 1 AND file_path IN (%s)",
			makePlaceholders(len(chunk)),
		)

		err := s.busy.Do(ctx, func() error {
			res, execErr := s.db.ExecContext(ctx, query, args...)
			if execErr != nil {
				return execErr
			}
			affected, execErr := res.RowsAffected()
			if execErr != nil {
				return execErr
			}
			total += int(affected)
			return nil
		})
		if err != nil {
			return total, services.Wrap(services.ErrStorage, "library", "deactivate", "update chunk", err)
		}
	}
	return total, nil
}

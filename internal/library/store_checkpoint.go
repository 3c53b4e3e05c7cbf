package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shellac/internal/services"
)

// Checkpoint tracks an indexing run so an interrupted run can resume without
// reprocessing files it already committed.
type Checkpoint struct {
	RunID     string
	Root      string
	Mode      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Completed bool
	Added     int
	Updated   int
	Skipped   int
	Failed    int
}

// CreateCheckpoint registers a new indexing run.
func (s *Store) CreateCheckpoint(ctx context.Context, runID, root, mode string) error {
	now := formatTime(time.Now())
	err := s.busy.Do(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO checkpoints (run_id, root, mode, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			runID, root, mode, now, now,
		)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrStorage, "library", "checkpoint", "create", err)
	}
	return nil
}

// MarkProcessed records a committed chunk of paths against the run and bumps
// the running counters. The path set and counters move together in one
// transaction so resume never double-counts.
func (s *Store) MarkProcessed(ctx context.Context, runID string, paths []string, added, updated, skipped, failed int) error {
	err := s.busy.Do(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("begin checkpoint tx: %w", txErr)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		for _, path := range paths {
			if _, execErr := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO checkpoint_paths (run_id, file_path) VALUES (?, ?)",
				runID, path,
			); execErr != nil {
				return fmt.Errorf("record checkpoint path: %w", execErr)
			}
		}

		res, execErr := tx.ExecContext(ctx, `UPDATE checkpoints SET
            added = added + ?, updated = updated + ?, skipped = skipped + ?, failed = failed + ?,
            updated_at = ?
        WHERE run_id = ?`,
			added, updated, skipped, failed, formatTime(time.Now()), runID,
		)
		if execErr != nil {
			return fmt.Errorf("bump checkpoint counters: %w", execErr)
		}
		affected, execErr := res.RowsAffected()
		if execErr != nil {
			return fmt.Errorf("checkpoint rows affected: %w", execErr)
		}
		if affected == 0 {
			return fmt.Errorf("unknown run %s", runID)
		}
		return tx.Commit()
	})
	if err != nil {
		return services.Wrap(services.ErrStorage, "library", "checkpoint", "mark processed", err)
	}
	return nil
}

// LatestCheckpoint returns the most recent incomplete run for the root, or
// ErrNotFound when every run for the root finished.
func (s *Store) LatestCheckpoint(ctx context.Context, root string) (*Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, root, mode, created_at, updated_at, completed,
            added, updated, skipped, failed
        FROM checkpoints WHERE root = ? AND completed = 0
        ORDER BY created_at DESC LIMIT 1`, root)

	var cp Checkpoint
	var createdRaw, updatedRaw string
	var completed int
	err := row.Scan(&cp.RunID, &cp.Root, &cp.Mode, &createdRaw, &updatedRaw, &completed,
		&cp.Added, &cp.Updated, &cp.Skipped, &cp.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "library", "checkpoint",
			fmt.Sprintf("no resumable run for %s", root), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "checkpoint", "query latest", err)
	}
	cp.Completed = completed != 0
	if t, parseErr := parseTimeString(createdRaw); parseErr == nil {
		cp.CreatedAt = t
	}
	if t, parseErr := parseTimeString(updatedRaw); parseErr == nil {
		cp.UpdatedAt = t
	}
	return &cp, nil
}

// ProcessedPaths returns the set of paths already committed under the run.
func (s *Store) ProcessedPaths(ctx context.Context, runID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT file_path FROM checkpoint_paths WHERE run_id = ?", runID)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "checkpoint", "query processed paths", err)
	}
	defer rows.Close()

	processed := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, services.Wrap(services.ErrStorage, "library", "checkpoint", "scan path", err)
		}
		processed[path] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "checkpoint", "iterate paths", err)
	}
	return processed, nil
}

// CompleteCheckpoint marks the run finished and drops its path set, which is
// only needed while the run can still be resumed.
func (s *Store) CompleteCheckpoint(ctx context.Context, runID string) error {
	err := s.busy.Do(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("begin complete tx: %w", txErr)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, execErr := tx.ExecContext(ctx,
			"UPDATE checkpoints SET completed = 1, updated_at = ? WHERE run_id = ?",
			formatTime(time.Now()), runID,
		); execErr != nil {
			return fmt.Errorf("mark completed: %w", execErr)
		}
		if _, execErr := tx.ExecContext(ctx,
			"DELETE FROM checkpoint_paths WHERE run_id = ?", runID,
		); execErr != nil {
			return fmt.Errorf("drop checkpoint paths: %w", execErr)
		}
		return tx.Commit()
	})
	if err != nil {
		return services.Wrap(services.ErrStorage, "library", "checkpoint", "complete", err)
	}
	return nil
}

package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shellac/internal/services"
)

// FolderEntry is one processed-folder history row. Folder paths are unique;
// re-vetting a folder overwrites its entry.
type FolderEntry struct {
	FolderPath string
	RunID      string
	VettedAt   time.Time
	Certain    int
	Uncertain  int
	NewFiles   int
	Failures   int
}

// RecordFolder upserts the history entry for a vetted folder.
func (s *Store) RecordFolder(ctx context.Context, entry FolderEntry) error {
	err := s.busy.Do(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `INSERT INTO folder_history
            (folder_path, run_id, vetted_at, certain, uncertain, new_files, failures)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(folder_path) DO UPDATE SET
            run_id = excluded.run_id,
            vetted_at = excluded.vetted_at,
            certain = excluded.certain,
            uncertain = excluded.uncertain,
            new_files = excluded.new_files,
            failures = excluded.failures`,
			entry.FolderPath, entry.RunID, formatTime(entry.VettedAt),
			entry.Certain, entry.Uncertain, entry.NewFiles, entry.Failures,
		)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrStorage, "library", "record folder", "upsert history", err)
	}
	return nil
}

// FolderSeen reports whether the folder already has a history entry, and when
// it was last vetted.
func (s *Store) FolderSeen(ctx context.Context, folderPath string) (bool, time.Time, error) {
	var vettedRaw string
	err := s.db.QueryRowContext(ctx,
		"SELECT vetted_at FROM folder_history WHERE folder_path = ?", folderPath,
	).Scan(&vettedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, services.Wrap(services.ErrStorage, "library", "folder seen", "query history", err)
	}
	vettedAt, parseErr := parseTimeString(vettedRaw)
	if parseErr != nil {
		vettedAt = time.Time{}
	}
	return true, vettedAt, nil
}

// History returns folder entries most recent first, bounded by limit when
// limit is positive.
func (s *Store) History(ctx context.Context, limit int) ([]FolderEntry, error) {
	query := `SELECT folder_path, run_id, vetted_at, certain, uncertain, new_files, failures
        FROM folder_history ORDER BY vetted_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "history", "query", err)
	}
	defer rows.Close()

	var entries []FolderEntry
	for rows.Next() {
		var entry FolderEntry
		var vettedRaw string
		if err := rows.Scan(&entry.FolderPath, &entry.RunID, &vettedRaw,
			&entry.Certain, &entry.Uncertain, &entry.NewFiles, &entry.Failures); err != nil {
			return nil, services.Wrap(services.ErrStorage, "library", "history", "scan row", err)
		}
		if t, parseErr := parseTimeString(vettedRaw); parseErr == nil {
			entry.VettedAt = t
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "history", "iterate rows", err)
	}
	return entries, nil
}

package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shellac/internal/hashing"
	"shellac/internal/services"
	"shellac/internal/textutil"
)

// GetByPaths returns the active records at the given paths, keyed by path.
// Paths without an active record are simply absent from the map.
func (s *Store) GetByPaths(ctx context.Context, paths []string) (map[string]*Record, error) {
	found := make(map[string]*Record, len(paths))
	for _, chunk := range chunkStrings(paths, maxQueryParams) {
		query := fmt.Sprintf(
			"SELECT %s FROM records WHERE is_active = 1 AND file_path IN (%s)",
			recordColumns, makePlaceholders(len(chunk)),
		)
		args := make([]any, len(chunk))
		for i, path := range chunk {
			args[i] = path
		}
		if err := s.queryRecords(ctx, query, args, func(record *Record) {
			found[record.FilePath] = record
		}); err != nil {
			return nil, services.Wrap(services.ErrStorage, "library", "get by paths", "query chunk", err)
		}
	}
	return found, nil
}

// GetByHashes returns the active records whose fingerprint of the given kind
// matches any of the digests, keyed by digest. Marker digests are never looked
// up; they are sentinels, not fingerprints.
func (s *Store) GetByHashes(ctx context.Context, digests []string, kind HashKind) (map[string][]*Record, error) {
	column, err := kind.Column()
	if err != nil {
		return nil, err
	}

	real := make([]string, 0, len(digests))
	for _, digest := range digests {
		if digest == "" || hashing.IsMarker(digest) {
			continue
		}
		real = append(real, digest)
	}

	found := make(map[string][]*Record, len(real))
	for _, chunk := range chunkStrings(real, maxQueryParams) {
		query := fmt.Sprintf(
			"SELECT %s FROM records WHERE is_active = 1 AND %s IN (%s)",
			recordColumns, column, makePlaceholders(len(chunk)),
		)
		args := make([]any, len(chunk))
		for i, digest := range chunk {
			args[i] = digest
		}
		if err := s.queryRecords(ctx, query, args, func(record *Record) {
			key := record.MetadataHash
			if kind == ContentHashKind {
				key = record.ContentHash
			}
			found[key] = append(found[key], record)
		}); err != nil {
			return nil, services.Wrap(services.ErrStorage, "library", "get by hashes", "query chunk", err)
		}
	}
	return found, nil
}

// ActiveByArtists returns all active records for the given normalized artist
// names, keyed by normalized artist. Callers pass already-normalized values;
// raw values are normalized defensively so lookups never miss on case.
func (s *Store) ActiveByArtists(ctx context.Context, artists []string) (map[string][]*Record, error) {
	norms := make([]string, 0, len(artists))
	seen := make(map[string]struct{}, len(artists))
	for _, artist := range artists {
		norm := textutil.Normalize(artist)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		norms = append(norms, norm)
	}

	found := make(map[string][]*Record, len(norms))
	for _, chunk := range chunkStrings(norms, maxQueryParams) {
		query := fmt.Sprintf(
			"SELECT %s, artist_norm FROM records WHERE is_active = 1 AND artist_norm IN (%s)",
			recordColumns, makePlaceholders(len(chunk)),
		)
		args := make([]any, len(chunk))
		for i, norm := range chunk {
			args[i] = norm
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "library", "active by artists", "query chunk", err)
		}
		for rows.Next() {
			record, norm, err := scanRecordWithNorm(rows)
			if err != nil {
				rows.Close()
				return nil, services.Wrap(services.ErrStorage, "library", "active by artists", "scan row", err)
			}
			found[norm] = append(found[norm], record)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, services.Wrap(services.ErrStorage, "library", "active by artists", "iterate rows", err)
		}
		rows.Close()
	}
	return found, nil
}

func scanRecordWithNorm(rows *sql.Rows) (*Record, string, error) {
	var (
		record Record
		norm   string

		filename    sql.NullString
		artist      sql.NullString
		title       sql.NullString
		album       sql.NullString
		year        sql.NullInt64
		duration    sql.NullFloat64
		format      sql.NullString
		fileSize    sql.NullInt64
		indexedRaw  sql.NullString
		mtimeRaw    sql.NullString
		verifiedRaw sql.NullString
		isActive    sql.NullInt64
	)
	if err := rows.Scan(
		&record.ID, &record.FilePath, &filename, &artist, &title, &album,
		&year, &duration, &format, &fileSize,
		&record.MetadataHash, &record.ContentHash,
		&indexedRaw, &mtimeRaw, &verifiedRaw, &isActive, &norm,
	); err != nil {
		return nil, "", err
	}
	record.Filename = filename.String
	record.Artist = artist.String
	record.Title = title.String
	record.Album = album.String
	record.Year = int(year.Int64)
	record.Duration = duration.Float64
	record.Format = format.String
	record.FileSize = fileSize.Int64
	record.IsActive = isActive.Int64 != 0
	if t, err := parseTimeString(indexedRaw.String); err == nil {
		record.IndexedAt = t
	}
	if t, err := parseTimeString(mtimeRaw.String); err == nil {
		record.FileMTime = t
	}
	if t, err := parseTimeString(verifiedRaw.String); err == nil {
		record.LastVerified = t
	}
	return &record, norm, nil
}

// ListActive streams every active record to fn in primary-key order.
func (s *Store) ListActive(ctx context.Context, fn func(*Record) error) error {
	query := fmt.Sprintf("SELECT %s FROM records WHERE is_active = 1 ORDER BY id", recordColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return services.Wrap(services.ErrStorage, "library", "list active", "query", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrInterrupted, "library", "list active", "canceled", err)
		}
		record, err := scanRecord(rows)
		if err != nil {
			return services.Wrap(services.ErrStorage, "library", "list active", "scan row", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return services.Wrap(services.ErrStorage, "library", "list active", "iterate rows", err)
	}
	return nil
}

// TouchVerified stamps last_verified on the active records at the given paths.
func (s *Store) TouchVerified(ctx context.Context, paths []string) error {
	now := formatTime(time.Now())
	for _, chunk := range chunkStrings(paths, maxQueryParams) {
		args := make([]any, 0, len(chunk)+1)
		args = append(args, now)
		for _, path := range chunk {
			args = append(args, path)
		}
		query := fmt.Sprintf(
			"UPDATE records SET last_verified = ? WHERE is_active = 1 AND file_path IN (%s)",
			makePlaceholders(len(chunk)),
		)
		err := s.busy.Do(ctx, func() error {
			_, execErr := s.db.ExecContext(ctx, query, args...)
			return execErr
		})
		if err != nil {
			return services.Wrap(services.ErrStorage, "library", "touch verified", "update chunk", err)
		}
	}
	return nil
}

// PurgeInactive hard-deletes soft-deleted rows and returns how many were
// removed. This is the only operation that physically deletes records.
func (s *Store) PurgeInactive(ctx context.Context) (int, error) {
	var removed int64
	err := s.busy.Do(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM records WHERE is_active = 0")
		if execErr != nil {
			return execErr
		}
		removed, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "library", "purge", "delete inactive", err)
	}
	return int(removed), nil
}

// Statistics aggregates the library for the stats command.
func (s *Store) Statistics(ctx context.Context) (*Stats, error) {
	stats := &Stats{Formats: make(map[string]int)}

	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(CASE WHEN is_active = 1 THEN 1 END),
        COUNT(CASE WHEN is_active = 0 THEN 1 END),
        COUNT(DISTINCT CASE WHEN is_active = 1 AND artist_norm != '' THEN artist_norm END),
        COALESCE(SUM(CASE WHEN is_active = 1 THEN file_size ELSE 0 END), 0),
        COALESCE(MAX(CASE WHEN is_active = 1 THEN indexed_at END), '')
    FROM records`)

	var lastIndexed string
	if err := row.Scan(&stats.TotalActive, &stats.TotalInactive, &stats.DistinctArtists, &stats.TotalBytes, &lastIndexed); err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "statistics", "aggregate records", err)
	}
	if t, err := parseTimeString(lastIndexed); err == nil {
		stats.LastIndexedAt = t
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT format, COUNT(1) FROM records WHERE is_active = 1 GROUP BY format")
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "statistics", "aggregate formats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, services.Wrap(services.ErrStorage, "library", "statistics", "scan format row", err)
		}
		stats.Formats[format] = count
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "statistics", "iterate formats", err)
	}
	return stats, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args []any, fn func(*Record)) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return err
		}
		fn(record)
	}
	return rows.Err()
}

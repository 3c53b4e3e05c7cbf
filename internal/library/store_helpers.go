package library

import (
	"database/sql"
	"errors"
	"time"

	"shellac/internal/textutil"
)

const recordColumns = "id, file_path, filename, artist, title, album, year, duration, format, file_size, metadata_hash, content_hash, indexed_at, file_mtime, last_verified, is_active"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		filePath     string
		filename     sql.NullString
		artist       sql.NullString
		title        sql.NullString
		album        sql.NullString
		year         sql.NullInt64
		duration     sql.NullFloat64
		format       sql.NullString
		fileSize     sql.NullInt64
		metadataHash string
		contentHash  string
		indexedRaw   sql.NullString
		mtimeRaw     sql.NullString
		verifiedRaw  sql.NullString
		isActive     sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&filePath,
		&filename,
		&artist,
		&title,
		&album,
		&year,
		&duration,
		&format,
		&fileSize,
		&metadataHash,
		&contentHash,
		&indexedRaw,
		&mtimeRaw,
		&verifiedRaw,
		&isActive,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		FilePath:     filePath,
		Filename:     filename.String,
		Artist:       artist.String,
		Title:        title.String,
		Album:        album.String,
		Year:         int(year.Int64),
		Duration:     duration.Float64,
		Format:       format.String,
		FileSize:     fileSize.Int64,
		MetadataHash: metadataHash,
		ContentHash:  contentHash,
		IsActive:     isActive.Int64 != 0,
	}

	if indexed, err := parseTimeString(indexedRaw.String); err == nil {
		record.IndexedAt = indexed
	}
	if mtime, err := parseTimeString(mtimeRaw.String); err == nil {
		record.FileMTime = mtime
	}
	if verified, err := parseTimeString(verifiedRaw.String); err == nil {
		record.LastVerified = verified
	}
	return record, nil
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

// normalizedFields derives the indexed lookup columns for a record. They are
// computed at write time so reads never re-normalize.
func normalizedFields(r *Record) (artistNorm, titleNorm string) {
	return textutil.Normalize(r.Artist), textutil.Normalize(r.Title)
}

// maxQueryParams bounds IN(...) expansion; SQLite's default variable limit
// is 999 on older builds.
const maxQueryParams = 500

func chunkStrings(values []string, size int) [][]string {
	if size <= 0 {
		size = maxQueryParams
	}
	var chunks [][]string
	for len(values) > 0 {
		n := size
		if n > len(values) {
			n = len(values)
		}
		chunks = append(chunks, values[:n])
		values = values[n:]
	}
	return chunks
}

func chunkRecords(records []*Record, size int) [][]*Record {
	if size <= 0 {
		size = 1
	}
	var chunks [][]*Record
	for len(records) > 0 {
		n := size
		if n > len(records) {
			n = len(records)
		}
		chunks = append(chunks, records[:n])
		records = records[n:]
	}
	return chunks
}

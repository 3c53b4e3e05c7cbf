package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"shellac/internal/services"
)

// Record is one indexed audio file. FilePath is the identity while the record
// is active; deactivated records keep their row for history.
type Record struct {
	ID       int64
	FilePath string
	Filename string
	Artist   string
	Title    string
	Album    string
	// Year is 0 when unknown, otherwise 1000..9999.
	Year int
	// Duration is in seconds.
	Duration     float64
	Format       string
	FileSize     int64
	MetadataHash string
	ContentHash  string
	IndexedAt    time.Time
	FileMTime    time.Time
	LastVerified time.Time
	IsActive     bool
}

// Validate checks range constraints before any write reaches the database.
func (r *Record) Validate() error {
	if r == nil {
		return services.Wrap(services.ErrValidation, "library", "record", "record is nil", nil)
	}
	if strings.TrimSpace(r.FilePath) == "" {
		return services.Wrap(services.ErrValidation, "library", "record", "file_path is empty", nil)
	}
	if r.Year != 0 && (r.Year < 1000 || r.Year > 9999) {
		return services.Wrap(services.ErrValidation, "library", "record",
			fmt.Sprintf("%s: year %d out of range", r.FilePath, r.Year), nil)
	}
	if r.Duration < 0 {
		return services.Wrap(services.ErrValidation, "library", "record",
			fmt.Sprintf("%s: negative duration", r.FilePath), nil)
	}
	if r.FileSize < 0 {
		return services.Wrap(services.ErrValidation, "library", "record",
			fmt.Sprintf("%s: negative file size", r.FilePath), nil)
	}
	if strings.TrimSpace(r.MetadataHash) == "" || strings.TrimSpace(r.ContentHash) == "" {
		return services.Wrap(services.ErrValidation, "library", "record",
			fmt.Sprintf("%s: missing hash", r.FilePath), nil)
	}
	if r.Filename == "" {
		r.Filename = filepath.Base(r.FilePath)
	}
	return nil
}

// HashKind selects which fingerprint column a hash lookup targets.
type HashKind string

const (
	MetadataHashKind HashKind = "metadata"
	ContentHashKind  HashKind = "content"
)

// hashColumns is the allow-list mapping hash kinds to column identifiers.
// Dynamic column names never come from anywhere else.
var hashColumns = map[HashKind]string{
	MetadataHashKind: "metadata_hash",
	ContentHashKind:  "content_hash",
}

// Column returns the backing column for the kind, or an error for anything
// outside the allow-list.
func (k HashKind) Column() (string, error) {
	column, ok := hashColumns[k]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "library", "hash lookup",
			fmt.Sprintf("unknown hash kind %q", string(k)), nil)
	}
	return column, nil
}

// BatchResult summarizes one batch mutation: how many records succeeded and
// which ones failed. Failures never abort the batch.
type BatchResult struct {
	Succeeded int
	Failures  []Failure
}

// Failure identifies a single record that could not be written.
type Failure struct {
	Path string
	Err  string
}

// Stats aggregates the active library for presentation layers.
type Stats struct {
	TotalActive     int
	TotalInactive   int
	DistinctArtists int
	TotalBytes      int64
	Formats         map[string]int
	LastIndexedAt   time.Time
}

// Package tags reads audio metadata through a narrow capability interface so
// any tag-reading implementation is swappable without touching the core.
package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.senan.xyz/taglib"

	"shellac/internal/services"
)

// Fields is the metadata the core needs from a single audio file.
type Fields struct {
	Artist   string
	Title    string
	Album    string
	Year     int     // 0 when unknown
	Duration float64 // seconds, 0 when unknown
	Format   string
	FileSize int64
	ModTime  time.Time
}

// Extractor is the tag-reading capability the indexer and vetter depend on.
type Extractor interface {
	Extract(path string) (Fields, error)
}

// TagLibExtractor reads tags and audio properties via taglib.
type TagLibExtractor struct{}

// NewTagLibExtractor returns the default taglib-backed extractor.
func NewTagLibExtractor() *TagLibExtractor {
	return &TagLibExtractor{}
}

// Extract reads tag fields and file stats. Tag-read failures still return the
// file stats so the caller can index an untagged or damaged file.
func (e *TagLibExtractor) Extract(path string) (Fields, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fields{}, services.Wrap(services.ErrIO, "tags", "stat", path, err)
	}

	fields := Fields{
		Format:   formatFromPath(path),
		FileSize: info.Size(),
		ModTime:  info.ModTime().UTC(),
	}

	tagMap, err := taglib.ReadTags(path)
	if err != nil {
		return fields, services.Wrap(services.ErrIO, "tags", "read tags", path, err)
	}
	fields.Artist = firstTag(tagMap, taglib.Artist)
	fields.Title = firstTag(tagMap, taglib.Title)
	fields.Album = firstTag(tagMap, taglib.Album)
	fields.Year = yearFromDate(firstTag(tagMap, taglib.Date))

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return fields, services.Wrap(services.ErrIO, "tags", "read properties", path, err)
	}
	fields.Duration = props.Length.Seconds()

	return fields, nil
}

// HasTags reports whether any identifying tag field is present.
func (f Fields) HasTags() bool {
	return strings.TrimSpace(f.Artist) != "" ||
		strings.TrimSpace(f.Title) != "" ||
		strings.TrimSpace(f.Album) != "" ||
		f.Year != 0
}

func firstTag(tags map[string][]string, key string) string {
	values := tags[key]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// yearFromDate parses the leading year out of a date tag, which may be
// "1997", "1997-10-21", or junk.
func yearFromDate(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	if year < 1000 || year > 9999 {
		return 0
	}
	return year
}

func formatFromPath(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "unknown"
	}
	return strings.ToLower(ext)
}

var _ Extractor = (*TagLibExtractor)(nil)

// String renders the identity fields for logs.
func (f Fields) String() string {
	return fmt.Sprintf("%s - %s (%s, %d)", f.Artist, f.Title, f.Album, f.Year)
}

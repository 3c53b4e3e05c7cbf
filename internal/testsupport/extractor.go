package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shellac/internal/tags"
)

// FakeExtractor serves canned tag fields by path so indexing tests run
// without real audio files. Unregistered paths fall back to stat-only fields,
// matching how untagged files surface in production.
type FakeExtractor struct {
	Fields map[string]tags.Fields
	// Fail lists paths whose extraction should error.
	Fail map[string]error
}

// NewFakeExtractor builds an empty extractor ready for Register calls.
func NewFakeExtractor() *FakeExtractor {
	return &FakeExtractor{
		Fields: make(map[string]tags.Fields),
		Fail:   make(map[string]error),
	}
}

// Register associates tag fields with a path.
func (f *FakeExtractor) Register(path string, fields tags.Fields) {
	f.Fields[path] = fields
}

// Extract implements tags.Extractor.
func (f *FakeExtractor) Extract(path string) (tags.Fields, error) {
	if err, ok := f.Fail[path]; ok {
		return tags.Fields{}, err
	}

	info, statErr := os.Stat(path)
	if fields, ok := f.Fields[path]; ok {
		if statErr == nil {
			fields.FileSize = info.Size()
			fields.ModTime = info.ModTime()
		} else {
			fields.FileSize = 1024
			fields.ModTime = time.Now().Add(-time.Hour)
		}
		if fields.Format == "" {
			fields.Format = "mp3"
		}
		return fields, nil
	}

	if statErr != nil {
		return tags.Fields{}, fmt.Errorf("stat %s: %w", filepath.Base(path), statErr)
	}
	return tags.Fields{
		Format:   "mp3",
		FileSize: info.Size(),
		ModTime:  info.ModTime(),
	}, nil
}

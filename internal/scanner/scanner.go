// Package scanner enumerates candidate audio files under a root directory.
// Traversal never follows symbolic links and admits only files whose
// extension is on the configured allow-list.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shellac/internal/logging"
	"shellac/internal/services"
)

// Scanner walks directory trees for audio files.
type Scanner struct {
	extensions map[string]struct{}
	logger     *slog.Logger
}

// New builds a scanner for the given extension allow-list (entries must
// include the leading dot, lowercase).
func New(extensions []string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.Discard()
	}
	allow := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allow[strings.ToLower(ext)] = struct{}{}
	}
	return &Scanner{extensions: allow, logger: logger.With("component", "scanner")}
}

// Scan returns the sorted absolute paths of matching files under root.
// Unreadable subtrees are logged and skipped; a missing or non-directory
// root is an error.
func (s *Scanner) Scan(ctx context.Context, root string) ([]string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrValidation, "scanner", "scan", "root path is empty", nil)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "scanner", "scan", root, err)
	}
	info, err := os.Lstat(absRoot)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "scanner", "stat root", absRoot, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "scanner", "scan", absRoot+" is not a directory", nil)
	}

	var paths []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		// WalkDir does not follow symlinks into directories, but symlinked
		// files still surface as entries; drop them too.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if s.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrInterrupted, "scanner", "scan", absRoot, walkErr)
		}
		return nil, services.Wrap(services.ErrIO, "scanner", "walk", absRoot, walkErr)
	}

	sort.Strings(paths)
	return paths, nil
}

// Supported reports whether a path carries an allow-listed audio extension.
func (s *Scanner) Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := s.extensions[ext]
	return ok
}

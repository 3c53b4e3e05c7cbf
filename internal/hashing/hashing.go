// Package hashing produces the two content fingerprints kept per library
// record: a metadata hash over normalized tag fields and a partial content
// hash over bounded head/tail samples of the file bytes.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"shellac/internal/textutil"
)

const (
	// NoMetadataMarker is returned instead of hashing an empty field tuple.
	// Hashing the empty string would make every untagged file in the
	// collection collide under one degenerate digest that looks like a
	// universal match.
	NoMetadataMarker = "NO_METADATA"
	// HashFailedMarker is returned for unreadable files so a single bad file
	// never aborts a batch. Downstream matching treats it as unmatchable.
	HashFailedMarker = "HASH_FAILED"

	// DefaultChunkSize is the head/tail sample size for content hashing.
	DefaultChunkSize = 64 * 1024
)

// IsMarker reports whether a digest is one of the sentinel values that must
// never participate in exact-match lookups.
func IsMarker(digest string) bool {
	return digest == NoMetadataMarker || digest == HashFailedMarker
}

// Computer derives both fingerprints. It is stateless apart from the sample
// size and safe for concurrent use.
type Computer struct {
	chunkSize int64
}

// NewComputer builds a Computer sampling chunkKiB KiB from each end of a file.
func NewComputer(chunkKiB int) *Computer {
	size := int64(chunkKiB) * 1024
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Computer{chunkSize: size}
}

// MetadataHash hashes the normalized artist/title/album/year tuple. All-empty
// fields yield NoMetadataMarker. Identical normalized tuples always produce
// identical digests.
func (c *Computer) MetadataHash(artist, title, album string, year int) string {
	artist = textutil.Normalize(artist)
	title = textutil.Normalize(title)
	album = textutil.Normalize(album)

	yearPart := ""
	if year != 0 {
		yearPart = strconv.Itoa(year)
	}
	if artist == "" && title == "" && album == "" && yearPart == "" {
		return NoMetadataMarker
	}

	joined := strings.Join([]string{artist, title, album, yearPart}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// ContentHash hashes the first chunk of the file and, when the file is at
// least two chunks long, the last chunk as well. Smaller files are hashed
// whole. Unreadable files return HashFailedMarker together with the cause so
// callers can log and continue.
func (c *Computer) ContentHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return HashFailedMarker, fmt.Errorf("open for hashing: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return HashFailedMarker, fmt.Errorf("stat for hashing: %w", err)
	}
	size := info.Size()

	hasher := sha256.New()
	head := c.chunkSize
	if size < head {
		head = size
	}
	if _, err := io.CopyN(hasher, file, head); err != nil && err != io.EOF {
		return HashFailedMarker, fmt.Errorf("read head chunk: %w", err)
	}

	if size >= 2*c.chunkSize {
		if _, err := file.Seek(size-c.chunkSize, io.SeekStart); err != nil {
			return HashFailedMarker, fmt.Errorf("seek tail chunk: %w", err)
		}
		if _, err := io.CopyN(hasher, file, c.chunkSize); err != nil && err != io.EOF {
			return HashFailedMarker, fmt.Errorf("read tail chunk: %w", err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

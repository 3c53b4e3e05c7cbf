// Package matching decides whether incoming files duplicate library records.
// Exact fingerprint tiers are tried first; files with real metadata fall back
// to fuzzy title similarity within the same artist.
package matching

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hbollon/go-edlib"

	"shellac/internal/hashing"
	"shellac/internal/library"
	"shellac/internal/logging"
	"shellac/internal/services"
	"shellac/internal/textutil"
)

// MatchType identifies which tier produced a match.
type MatchType string

const (
	MatchExactMetadata MatchType = "exact_metadata"
	MatchExactContent  MatchType = "exact_content"
	MatchFuzzy         MatchType = "fuzzy"
	MatchNone          MatchType = "none"
)

// Candidate is an incoming file reduced to the fields matching needs.
type Candidate struct {
	Path         string
	Artist       string
	Title        string
	MetadataHash string
	ContentHash  string
}

// Match is the verdict for one candidate. Confidence is 1.0 for exact tiers,
// the title similarity for fuzzy matches, and 0 for no match.
type Match struct {
	Type       MatchType
	Confidence float64
	Record     *library.Record
}

// Matcher runs candidates against the library store. Lookups are batched so a
// folder of candidates costs a handful of queries, not one per file.
type Matcher struct {
	store          *library.Store
	fuzzyThreshold float64
	logger         *slog.Logger
}

// New builds a Matcher. Matches at or above fuzzyThreshold count as fuzzy
// duplicates; the threshold is inclusive.
func New(store *library.Store, fuzzyThreshold float64, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Matcher{store: store, fuzzyThreshold: fuzzyThreshold, logger: logger}
}

// ResolveThreshold applies an optional override to the configured fuzzy
// threshold. Zero keeps the configured value; anything outside (0, 1] is
// rejected so a bad override fails before any file or store work starts.
func ResolveThreshold(configured, override float64) (float64, error) {
	if override == 0 {
		return configured, nil
	}
	if override < 0 || override > 1 {
		return 0, services.Wrap(services.ErrValidation, "matching", "resolve threshold",
			fmt.Sprintf("fuzzy threshold %g is outside (0, 1]", override), nil)
	}
	return override, nil
}

// MatchOne matches a single candidate.
func (m *Matcher) MatchOne(ctx context.Context, candidate Candidate) (Match, error) {
	matches, err := m.MatchBatch(ctx, []Candidate{candidate})
	if err != nil {
		return Match{Type: MatchNone}, err
	}
	return matches[0], nil
}

// MatchBatch matches candidates in order. The result slice is parallel to the
// input. A candidate never matches the record at its own path, so re-vetting
// an already-indexed folder does not flag every file as its own duplicate.
func (m *Matcher) MatchBatch(ctx context.Context, candidates []Candidate) ([]Match, error) {
	metadataDigests := make([]string, 0, len(candidates))
	contentDigests := make([]string, 0, len(candidates))
	artists := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if !hashing.IsMarker(candidate.MetadataHash) {
			metadataDigests = append(metadataDigests, candidate.MetadataHash)
		}
		if !hashing.IsMarker(candidate.ContentHash) {
			contentDigests = append(contentDigests, candidate.ContentHash)
		}
		if norm := textutil.Normalize(candidate.Artist); norm != "" {
			artists = append(artists, norm)
		}
	}

	byMetadata, err := m.store.GetByHashes(ctx, metadataDigests, library.MetadataHashKind)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "matching", "match batch", "metadata lookup", err)
	}
	byContent, err := m.store.GetByHashes(ctx, contentDigests, library.ContentHashKind)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "matching", "match batch", "content lookup", err)
	}
	byArtist, err := m.store.ActiveByArtists(ctx, artists)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "matching", "match batch", "artist lookup", err)
	}

	matches := make([]Match, len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrInterrupted, "matching", "match batch", "canceled", err)
		}
		matches[i] = m.classify(candidate, byMetadata, byContent, byArtist)
	}
	return matches, nil
}

func (m *Matcher) classify(
	candidate Candidate,
	byMetadata, byContent, byArtist map[string][]*library.Record,
) Match {
	if record := firstOther(byMetadata[candidate.MetadataHash], candidate.Path); record != nil {
		return Match{Type: MatchExactMetadata, Confidence: 1.0, Record: record}
	}
	if record := firstOther(byContent[candidate.ContentHash], candidate.Path); record != nil {
		return Match{Type: MatchExactContent, Confidence: 1.0, Record: record}
	}

	artistNorm := textutil.Normalize(candidate.Artist)
	titleNorm := textutil.Normalize(candidate.Title)
	if artistNorm == "" || titleNorm == "" {
		return Match{Type: MatchNone}
	}

	var best *library.Record
	bestScore := 0.0
	for _, record := range byArtist[artistNorm] {
		if record.FilePath == candidate.Path {
			continue
		}
		recordTitle := textutil.Normalize(record.Title)
		if recordTitle == "" {
			continue
		}
		score, err := edlib.StringsSimilarity(titleNorm, recordTitle, edlib.Lcs)
		if err != nil {
			m.logger.Warn("title similarity failed",
				slog.String("component", "matching"),
				slog.String("path", candidate.Path),
				slog.String("error", err.Error()))
			continue
		}
		if float64(score) > bestScore {
			bestScore = float64(score)
			best = record
		}
	}

	if best != nil && bestScore >= m.fuzzyThreshold {
		return Match{Type: MatchFuzzy, Confidence: bestScore, Record: best}
	}
	return Match{Type: MatchNone}
}

func firstOther(records []*library.Record, selfPath string) *library.Record {
	for _, record := range records {
		if record.FilePath != selfPath {
			return record
		}
	}
	return nil
}

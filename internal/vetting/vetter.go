package vetting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shellac/internal/config"
	"shellac/internal/hashing"
	"shellac/internal/library"
	"shellac/internal/logging"
	"shellac/internal/matching"
	"shellac/internal/scanner"
	"shellac/internal/services"
	"shellac/internal/tags"
)

// Vetter runs the import workflow against a library store. It never inserts
// records; a vetted folder enters the library through the indexer once the
// operator has acted on the report.
type Vetter struct {
	cfg       *config.Config
	store     *library.Store
	scanner   *scanner.Scanner
	extractor tags.Extractor
	computer  *hashing.Computer
	logger    *slog.Logger

	state State
}

// New builds a Vetter around the given store and extractor.
func New(cfg *config.Config, store *library.Store, extractor tags.Extractor, logger *slog.Logger) *Vetter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Vetter{
		cfg:       cfg,
		store:     store,
		scanner:   scanner.New(cfg.Scanner.Extensions, logger),
		extractor: extractor,
		computer:  hashing.NewComputer(cfg.Hashing.ChunkKiB),
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current workflow phase.
func (v *Vetter) State() State {
	return v.state
}

// Vet runs the full workflow for one folder and returns its report.
func (v *Vetter) Vet(ctx context.Context, folder string, opts Options) (*Report, error) {
	start := time.Now()
	v.state = StateIdle

	threshold, err := matching.ResolveThreshold(v.cfg.Matching.FuzzyThreshold, opts.Threshold)
	if err != nil {
		return nil, err
	}

	if !opts.Force {
		seen, vettedAt, err := v.store.FolderSeen(ctx, folder)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, services.Wrap(services.ErrValidation, "vetting", "vet",
				fmt.Sprintf("%s was already vetted at %s, use force to re-vet", folder, vettedAt.Format(time.RFC3339)), nil)
		}
	}

	report := &Report{
		RunID:       uuid.New().String(),
		Folder:      folder,
		GeneratedAt: start.UTC(),
	}

	v.state = StateScanning
	paths, err := v.scanner.Scan(ctx, folder)
	if err != nil {
		return nil, err
	}
	v.logger.Info("vetting started",
		slog.String("component", "vetting"),
		slog.String("run_id", report.RunID),
		slog.String("folder", folder),
		slog.Int("files", len(paths)))

	candidates := make([]matching.Candidate, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrInterrupted, "vetting", "vet", "canceled during scan", err)
		}
		candidate, err := v.buildCandidate(ctx, path)
		if err != nil {
			report.Failures = append(report.Failures, library.Failure{Path: path, Err: err.Error()})
			v.logger.Warn("file failed",
				slog.String("component", "vetting"),
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		candidates = append(candidates, candidate)
	}

	v.state = StateMatching
	matcher := matching.New(v.store, threshold, v.logger)
	matches, err := matcher.MatchBatch(ctx, candidates)
	if err != nil {
		return nil, err
	}

	v.state = StateCategorizing
	for i, match := range matches {
		candidate := candidates[i]
		result := Result{
			Path:       candidate.Path,
			Artist:     candidate.Artist,
			Title:      candidate.Title,
			Category:   categorize(match.Confidence, threshold, v.cfg.Matching.CertainThreshold),
			MatchType:  match.Type,
			Confidence: match.Confidence,
		}
		if match.Record != nil {
			result.MatchedPath = match.Record.FilePath
		}
		switch result.Category {
		case CategoryCertain:
			report.Certain++
		case CategoryUncertain:
			report.Uncertain++
		default:
			report.New++
		}
		report.Results = append(report.Results, result)
	}

	v.state = StateReporting
	if opts.Record {
		entry := library.FolderEntry{
			FolderPath: folder,
			RunID:      report.RunID,
			VettedAt:   time.Now(),
			Certain:    report.Certain,
			Uncertain:  report.Uncertain,
			NewFiles:   report.New,
			Failures:   len(report.Failures),
		}
		if err := v.store.RecordFolder(ctx, entry); err != nil {
			return nil, err
		}
	}

	v.state = StateComplete
	report.Elapsed = time.Since(start)
	v.logger.Info("vetting finished",
		slog.String("component", "vetting"),
		slog.String("run_id", report.RunID),
		slog.Int("certain", report.Certain),
		slog.Int("uncertain", report.Uncertain),
		slog.Int("new", report.New),
		slog.Int("failed", len(report.Failures)),
		slog.Duration("elapsed", report.Elapsed))
	return report, nil
}

// buildCandidate extracts tags and computes both fingerprints for one file.
// Hash failures are not file failures; the marker digest keeps the file in
// the report as unmatchable.
func (v *Vetter) buildCandidate(ctx context.Context, path string) (matching.Candidate, error) {
	var fields tags.Fields
	err := services.FileReadPolicy().Do(ctx, func() error {
		value, extractErr := v.extractor.Extract(path)
		if extractErr != nil {
			return extractErr
		}
		fields = value
		return nil
	})
	if err != nil {
		return matching.Candidate{}, err
	}

	contentHash, hashErr := v.computer.ContentHash(path)
	if hashErr != nil {
		v.logger.Warn("content hash failed",
			slog.String("component", "vetting"),
			slog.String("path", path),
			slog.String("error", hashErr.Error()))
	}

	return matching.Candidate{
		Path:         path,
		Artist:       fields.Artist,
		Title:        fields.Title,
		MetadataHash: v.computer.MetadataHash(fields.Artist, fields.Title, fields.Album, fields.Year),
		ContentHash:  contentHash,
	}, nil
}

package matching_test

import (
	"context"
	"errors"
	"testing"

	"shellac/internal/hashing"
	"shellac/internal/matching"
	"shellac/internal/services"
	"shellac/internal/testsupport"
)

func TestResolveThreshold(t *testing.T) {
	cases := []struct {
		name     string
		override float64
		want     float64
		invalid  bool
	}{
		{"zero keeps configured", 0, 0.8, false},
		{"valid override", 0.9, 0.9, false},
		{"exactly one", 1, 1, false},
		{"above one", 1.5, 0, true},
		{"negative", -0.2, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := matching.ResolveThreshold(0.8, tc.override)
			if tc.invalid {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveThreshold: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %g, got %g", tc.want, got)
			}
		})
	}
}

func TestExactMetadataMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	record := testsupport.NewRecord("/lib/track.mp3", "Artist", "Song", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)
	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/incoming/copy.mp3",
		Artist:       "Artist",
		Title:        "Song",
		MetadataHash: record.MetadataHash,
		ContentHash:  "0000000000000000000000000000000000000000000000000000000000000000",
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchExactMetadata || match.Confidence != 1.0 {
		t.Fatalf("unexpected match: %+v", match)
	}
	if match.Record == nil || match.Record.FilePath != "/lib/track.mp3" {
		t.Fatalf("wrong matched record: %+v", match.Record)
	}
}

func TestExactContentBeatenByMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	byMeta := testsupport.NewRecord("/lib/meta.mp3", "Artist", "Song", "Album", 2000)
	byContent := testsupport.NewRecord("/lib/content.mp3", "Other", "Other Song", "Other", 2001)
	testsupport.SeedRecords(t, store, byMeta, byContent)

	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)
	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/incoming/both.mp3",
		Artist:       "Artist",
		Title:        "Song",
		MetadataHash: byMeta.MetadataHash,
		ContentHash:  byContent.ContentHash,
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchExactMetadata {
		t.Fatalf("metadata tier must win, got %+v", match)
	}
}

func TestExactContentMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	record := testsupport.NewRecord("/lib/track.flac", "Artist", "Song", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)
	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/incoming/retagged.flac",
		Artist:       "Artist",
		Title:        "Renamed Completely",
		MetadataHash: "1111111111111111111111111111111111111111111111111111111111111111",
		ContentHash:  record.ContentHash,
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchExactContent || match.Confidence != 1.0 {
		t.Fatalf("unexpected match: %+v", match)
	}
}

func TestMarkersSkipExactTiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)

	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/incoming/untagged.mp3",
		MetadataHash: hashing.NoMetadataMarker,
		ContentHash:  hashing.HashFailedMarker,
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchNone {
		t.Fatalf("markers must never match, got %+v", match)
	}
}

func TestFuzzyMatchWithinArtist(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	record := testsupport.NewRecord("/lib/track.mp3", "Artist", "Paranoid Android", "OK", 1997)
	testsupport.SeedRecords(t, store, record)

	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)
	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/incoming/near.mp3",
		Artist:       "artist",
		Title:        "Paranoid Androids",
		MetadataHash: "2222222222222222222222222222222222222222222222222222222222222222",
		ContentHash:  "3333333333333333333333333333333333333333333333333333333333333333",
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchFuzzy {
		t.Fatalf("expected fuzzy match, got %+v", match)
	}
	if match.Confidence < cfg.Matching.FuzzyThreshold || match.Confidence >= 1.0 {
		t.Fatalf("confidence out of fuzzy range: %v", match.Confidence)
	}
}

func TestFuzzyThresholdInclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	// LCS similarity of the two titles is exactly 8/10 = 0.8.
	record := testsupport.NewRecord("/lib/track.mp3", "Artist", "aaaabbbbcc", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	matcher := matching.New(store, 0.8, nil)
	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/incoming/edge.mp3",
		Artist:       "Artist",
		Title:        "aaaabbbb",
		MetadataHash: "4444444444444444444444444444444444444444444444444444444444444444",
		ContentHash:  "5555555555555555555555555555555555555555555555555555555555555555",
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchFuzzy {
		t.Fatalf("score equal to the threshold must match, got %+v", match)
	}
}

func TestDifferentArtistNeverFuzzyMatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	record := testsupport.NewRecord("/lib/track.mp3", "Artist One", "Same Title", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)
	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/incoming/other.mp3",
		Artist:       "Artist Two",
		Title:        "Same Title",
		MetadataHash: "6666666666666666666666666666666666666666666666666666666666666666",
		ContentHash:  "7777777777777777777777777777777777777777777777777777777777777777",
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchNone {
		t.Fatalf("fuzzy matching must stay within the artist, got %+v", match)
	}
}

func TestSelfPathExcluded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	record := testsupport.NewRecord("/lib/track.mp3", "Artist", "Song", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)
	match, err := matcher.MatchOne(context.Background(), matching.Candidate{
		Path:         "/lib/track.mp3",
		Artist:       "Artist",
		Title:        "Song",
		MetadataHash: record.MetadataHash,
		ContentHash:  record.ContentHash,
	})
	if err != nil {
		t.Fatalf("MatchOne: %v", err)
	}
	if match.Type != matching.MatchNone {
		t.Fatalf("a file must not match its own record, got %+v", match)
	}
}

func TestMatchBatchPreservesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	record := testsupport.NewRecord("/lib/track.mp3", "Artist", "Song", "Album", 2000)
	testsupport.SeedRecords(t, store, record)

	matcher := matching.New(store, cfg.Matching.FuzzyThreshold, nil)
	matches, err := matcher.MatchBatch(context.Background(), []matching.Candidate{
		{Path: "/in/1.mp3", MetadataHash: hashing.NoMetadataMarker, ContentHash: hashing.HashFailedMarker},
		{Path: "/in/2.mp3", Artist: "Artist", Title: "Song", MetadataHash: record.MetadataHash, ContentHash: "8888888888888888888888888888888888888888888888888888888888888888"},
		{Path: "/in/3.mp3", MetadataHash: hashing.NoMetadataMarker, ContentHash: record.ContentHash},
	})
	if err != nil {
		t.Fatalf("MatchBatch: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].Type != matching.MatchNone ||
		matches[1].Type != matching.MatchExactMetadata ||
		matches[2].Type != matching.MatchExactContent {
		t.Fatalf("order not preserved: %v %v %v", matches[0].Type, matches[1].Type, matches[2].Type)
	}
}

// Package vetting is the import workflow: scan a candidate folder, match every
// file against the library, and categorize the results into a report without
// writing any records. The only store writes are folder-history entries.
package vetting

import (
	"encoding/json"
	"io"
	"time"

	"shellac/internal/library"
	"shellac/internal/matching"
)

// State names the workflow phases. There is no error phase: a file that
// fails lands in the report's failure list and the run still reaches
// StateComplete.
type State string

const (
	StateIdle         State = "idle"
	StateScanning     State = "scanning"
	StateMatching     State = "matching"
	StateCategorizing State = "categorizing"
	StateReporting    State = "reporting"
	StateComplete     State = "complete"
)

// Category buckets one vetted file by match confidence.
type Category string

const (
	CategoryCertain   Category = "certain_duplicate"
	CategoryUncertain Category = "uncertain"
	CategoryNew       Category = "new"
)

// Options controls one vetting run.
type Options struct {
	// Force vets a folder even when history says it was processed before.
	Force bool
	// Record writes a folder-history entry after a successful run.
	Record bool
	// Threshold overrides the configured fuzzy threshold. Zero keeps the
	// configured value; anything outside (0, 1] fails validation.
	Threshold float64
}

// Result is the verdict for one candidate file.
type Result struct {
	Path        string             `json:"path"`
	Artist      string             `json:"artist,omitempty"`
	Title       string             `json:"title,omitempty"`
	Category    Category           `json:"category"`
	MatchType   matching.MatchType `json:"match_type"`
	Confidence  float64            `json:"confidence"`
	MatchedPath string             `json:"matched_path,omitempty"`
}

// Report is the outcome of vetting one folder.
type Report struct {
	RunID       string            `json:"run_id"`
	Folder      string            `json:"folder"`
	GeneratedAt time.Time         `json:"generated_at"`
	Certain     int               `json:"certain"`
	Uncertain   int               `json:"uncertain"`
	New         int               `json:"new"`
	Results     []Result          `json:"results"`
	Failures    []library.Failure `json:"failures,omitempty"`
	Elapsed     time.Duration     `json:"elapsed_ns"`
}

// WriteJSON renders the report machine-readable. Output is UTF-8 JSON with
// stable field names.
func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// categorize applies the confidence policy. Both boundaries are inclusive:
// a score exactly at certainThreshold is certain, exactly at fuzzyThreshold
// is uncertain.
func categorize(confidence, fuzzyThreshold, certainThreshold float64) Category {
	switch {
	case confidence >= certainThreshold:
		return CategoryCertain
	case confidence >= fuzzyThreshold:
		return CategoryUncertain
	default:
		return CategoryNew
	}
}

package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes, drops combining marks, and recomposes, so
// "Tiësto" and "Tiesto" normalize identically.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// noiseSuffixes are release-variant decorations that carry no identity.
// Matching compares titles with these stripped so "Song" and "Song (Radio
// Edit)" land in the same neighborhood. Entries must already be lowercase.
var noiseSuffixes = []string{
	"(radio edit)",
	"(original mix)",
	"(extended mix)",
	"(club mix)",
	"(remastered)",
	"(remaster)",
	"(live)",
	"(acoustic)",
	"(official)",
	"(official video)",
	"(official audio)",
	"(official music video)",
	"[official]",
	"[official video]",
	"[official audio]",
	"[explicit]",
	"- remastered",
	"- remaster",
	"- radio edit",
	"- original mix",
	"- extended mix",
	"- live",
}

// Normalize lowercases, trims, folds diacritics, collapses whitespace, and
// strips known noise suffixes. Normalize(Normalize(s)) == Normalize(s) for
// every input.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	s = strings.Join(strings.Fields(s), " ")

	// Suffixes may stack ("song (live) (remastered)"); strip to a fixed point.
	for {
		stripped := s
		for _, suffix := range noiseSuffixes {
			if strings.HasSuffix(stripped, suffix) {
				stripped = strings.TrimSpace(strings.TrimSuffix(stripped, suffix))
			}
		}
		if stripped == s {
			break
		}
		s = stripped
	}
	return s
}

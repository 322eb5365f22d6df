// Package similarity scores how close two tag names are.
//
// Names are folded before comparison: accents are stripped, case is folded
// and runs of whitespace collapse to one space. The score is a normalized
// Levenshtein similarity on the folded runes, in [0, 100]. Two names score
// exactly 100 only when their folded forms are identical, which is what lets
// exact-duplicate and near-duplicate detection stay mutually exclusive.
package similarity

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Max is the score of two names with identical folded forms.
const Max = 100.0

// Key returns the folded form of name used for comparisons and for
// exact-duplicate grouping. A Caser is stateful, so each call builds its own.
func Key(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		// Invalid UTF-8 falls back to the raw input
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// Score returns the similarity of a and b in [0, 100].
// It is symmetric and deterministic; empty names score 0.
func Score(a, b string) float64 {
	return ScoreKeys(Key(a), Key(b))
}

// ScoreKeys scores two already-folded keys. Callers comparing one name
// against many should fold once with Key and use this.
func ScoreKeys(ka, kb string) float64 {
	if ka == "" || kb == "" {
		return 0
	}
	if ka == kb {
		return Max
	}
	la := len([]rune(ka))
	lb := len([]rune(kb))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	dist := levenshtein.ComputeDistance(ka, kb)
	if dist >= maxLen {
		return 0
	}
	return Max * float64(maxLen-dist) / float64(maxLen)
}

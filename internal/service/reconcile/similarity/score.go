// Package similarity scores how alike two normalized strings are.
// Callers normalize both sides first; the scorer compares them as given.
package similarity

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Score returns 2*LCS(a, b) / (len(a)+len(b)) measured in runes, the same
// ratio difflib-style matchers report. Exact equality is 1.0, comparison
// against an empty string is 0.0. Score is symmetric and deterministic.
func Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	lcs := edlib.LCS(a, b)
	return float64(2*lcs) / float64(total)
}

package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "oulindra", b: "oulindra", want: 1},
		{name: "empty left", a: "", b: "oulindra", want: 0},
		{name: "empty right", a: "oulindra", b: "", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "one char off", a: "bweni", b: "bwen", want: 8.0 / 9.0},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
		{name: "multibyte runes", a: "ñoño", b: "ñoña", want: 6.0 / 8.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScore_SymmetricAndReflexive(t *testing.T) {
	t.Parallel()

	words := []string{
		"mama titi", "nindri heli", "bweni", "oulindra", "xyzabc",
		"mtrou", "mtru", "ngama", "shitsoukou", "a", "ab",
	}
	for _, a := range words {
		assert.Equal(t, 1.0, Score(a, a), "reflexive on %q", a)
		for _, b := range words {
			ab, ba := Score(a, b), Score(b, a)
			assert.Equal(t, ab, ba, "symmetric on %q/%q", a, b)
			assert.True(t, ab >= 0 && ab <= 1 && !math.IsNaN(ab), "range on %q/%q: %v", a, b, ab)
		}
	}
}

func TestScore_ShortUnrelatedWordsCanScoreHigh(t *testing.T) {
	t.Parallel()

	// Two-letter words share one letter and already reach 0.5; longer
	// near-misses easily pass 0.75. This is why the matcher floor is 0.80.
	assert.InDelta(t, 0.5, Score("ba", "bi"), 1e-9)
	assert.Greater(t, Score("mwana", "mwani"), 0.75)
}

package assetmatch

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func record(category, langA, langB string) domain.DictionaryRecord {
	return domain.DictionaryRecord{
		ID:           uuid.New(),
		Headword:     langA + "/" + langB,
		Category:     category,
		Translations: map[domain.Language]string{domain.LangA: langA, domain.LangB: langB},
	}
}

func files(category string, names ...string) []domain.AssetFile {
	out := make([]domain.AssetFile, len(names))
	for i, n := range names {
		out[i] = domain.AssetFile{Filename: n, Category: category}
	}
	return out
}

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := New(0.8)
	require.NoError(t, err)
	return m
}

func acceptedFor(res Result, id uuid.UUID, lang domain.Language) *domain.MatchCandidate {
	for i := range res.Accepted {
		if res.Accepted[i].RecordID == id && res.Accepted[i].Language == lang {
			return &res.Accepted[i]
		}
	}
	return nil
}

func unmatchedNames(res Result) []string {
	out := make([]string, 0, len(res.Unmatched))
	for _, a := range res.Unmatched {
		out = append(out, a.Filename)
	}
	return out
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew_RejectsLowThreshold(t *testing.T) {
	t.Parallel()

	for _, score := range []float64{0, 0.5, 0.79, 1.01} {
		_, err := New(score)
		assert.ErrorIs(t, err, domain.ErrValidation, "score %v", score)
	}

	m, err := New(MinScoreFloor)
	require.NoError(t, err)
	assert.Equal(t, MinScoreFloor, m.MinScore())
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestMatch_ExactAfterNormalization(t *testing.T) {
	t.Parallel()

	r := record("verbes", "oulindra", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("verbes", "Oulindra.m4a"))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, domain.MatchCandidate{
		RecordID: r.ID, Language: domain.LangA, Filename: "Oulindra.m4a", Score: 1.0,
	}, res.Accepted[0])
	assert.Empty(t, res.Ambiguous)
	assert.Empty(t, res.Unmatched)
}

func TestMatch_SharedPronunciationAcrossRecords(t *testing.T) {
	t.Parallel()

	r1 := record("maison", "bweni", "")
	r2 := record("maison", "bweni", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r1, r2}, files("maison", "Bweni.m4a"))

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "Bweni.m4a", acceptedFor(res, r1.ID, domain.LangA).Filename)
	assert.Equal(t, "Bweni.m4a", acceptedFor(res, r2.ID, domain.LangA).Filename)
	assert.Empty(t, res.Ambiguous)
	assert.Empty(t, res.Unmatched)
}

func TestMatch_SharedPronunciationWithinRecord(t *testing.T) {
	t.Parallel()

	r := record("nature", "bahari", "Bahari")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("nature", "bahari.m4a"))

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "bahari.m4a", acceptedFor(res, r.ID, domain.LangA).Filename)
	assert.Equal(t, "bahari.m4a", acceptedFor(res, r.ID, domain.LangB).Filename)
}

func TestMatch_UnrelatedAssetIsUnmatched(t *testing.T) {
	t.Parallel()

	recs := []domain.DictionaryRecord{
		record("famille", "mama titi", "nindri heli"),
		record("famille", "baba", "baba"),
	}
	res := newMatcher(t).Match(recs, files("famille", "Xyzabc.m4a"))

	assert.Empty(t, res.Accepted)
	assert.Equal(t, []string{"Xyzabc.m4a"}, unmatchedNames(res))
}

// ---------------------------------------------------------------------------
// Collisions
// ---------------------------------------------------------------------------

func TestMatch_CollisionDemotesLoserToNextBest(t *testing.T) {
	t.Parallel()

	// "mtrour" prefers Mtrou (0.909) over Mtroui (0.833) but loses Mtrou to
	// the exact match even though it proposes first.
	loser := record("corps", "mtrour", "")
	winner := record("corps", "mtrou", "")
	res := newMatcher(t).Match(
		[]domain.DictionaryRecord{loser, winner},
		files("corps", "Mtrou.m4a", "Mtroui.m4a"),
	)

	require.Len(t, res.Accepted, 2)
	w := acceptedFor(res, winner.ID, domain.LangA)
	l := acceptedFor(res, loser.ID, domain.LangA)
	assert.Equal(t, "Mtrou.m4a", w.Filename)
	assert.Equal(t, 1.0, w.Score)
	assert.Equal(t, "Mtroui.m4a", l.Filename)
	assert.InDelta(t, 10.0/12.0, l.Score, 1e-9)
	assert.Empty(t, res.Unmatched)
}

func TestMatch_CollisionLoserDroppedWhenNoCandidateLeft(t *testing.T) {
	t.Parallel()

	winner := record("corps", "mtrou", "")
	loser := record("corps", "mtrour", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{winner, loser}, files("corps", "Mtrou.m4a"))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, winner.ID, res.Accepted[0].RecordID)
	assert.Nil(t, acceptedFor(res, loser.ID, domain.LangA))
}

func TestMatch_EqualScoreCollisionGoesToEarlierRecord(t *testing.T) {
	t.Parallel()

	first := record("nourriture", "mamab", "")
	second := record("nourriture", "mamac", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{first, second}, files("nourriture", "mama.m4a"))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, first.ID, res.Accepted[0].RecordID)
}

func TestMatch_EqualScoreCollisionPrefersMarkedLanguage(t *testing.T) {
	t.Parallel()

	// Both slots score 8/9 against "mama"; the file carries the lang_b marker.
	a := record("nourriture", "mamab", "")
	b := record("nourriture", "", "mamac")
	res := newMatcher(t).Match([]domain.DictionaryRecord{a, b}, files("nourriture", "mama k.m4a"))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, b.ID, res.Accepted[0].RecordID)
	assert.Equal(t, domain.LangB, res.Accepted[0].Language)
}

// ---------------------------------------------------------------------------
// Ties for a single slot
// ---------------------------------------------------------------------------

func TestMatch_ExactBeatsPartial(t *testing.T) {
	t.Parallel()

	r := record("maison", "bweni", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("maison", "Bwenii.m4a", "Bweni.m4a"))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "Bweni.m4a", res.Accepted[0].Filename)
	assert.Equal(t, []string{"Bwenii.m4a"}, unmatchedNames(res))
}

func TestMatch_PartialTieBrokenByListingOrder(t *testing.T) {
	t.Parallel()

	r := record("maison", "bweni", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("maison", "bwenia.m4a", "bwenie.m4a"))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "bwenia.m4a", res.Accepted[0].Filename)
	assert.Empty(t, res.Ambiguous)
	assert.Equal(t, []string{"bwenie.m4a"}, unmatchedNames(res))
}

func TestMatch_LanguageMarkersSplitIdenticalTranslations(t *testing.T) {
	t.Parallel()

	r := record("maison", "bweni", "bweni")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("maison", "Bweni k.m4a", "Bweni s.m4a"))

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "Bweni s.m4a", acceptedFor(res, r.ID, domain.LangA).Filename)
	assert.Equal(t, "Bweni k.m4a", acceptedFor(res, r.ID, domain.LangB).Filename)
	assert.Empty(t, res.Ambiguous)
	assert.Empty(t, res.Unmatched)
}

func TestMatch_IndistinguishableExactMatchesAreAmbiguous(t *testing.T) {
	t.Parallel()

	r := record("maison", "bweni", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("maison", "Bweni.m4a", "bweni.mp3"))

	assert.Empty(t, res.Accepted)
	require.Len(t, res.Ambiguous, 1)
	amb := res.Ambiguous[0]
	assert.Equal(t, r.ID, amb.RecordID)
	assert.Equal(t, domain.LangA, amb.Language)
	assert.Equal(t, []ScoredAsset{{Filename: "Bweni.m4a", Score: 1}, {Filename: "bweni.mp3", Score: 1}}, amb.Candidates)
	assert.Empty(t, res.Unmatched, "ambiguous candidates are pending review, not orphans")
}

// ---------------------------------------------------------------------------
// Partitioning and input handling
// ---------------------------------------------------------------------------

func TestMatch_NeverCrossesCategories(t *testing.T) {
	t.Parallel()

	r := record("maison", "bweni", "")
	in := append(files("nature", "Bweni.m4a"), files("maison", "Nyumba.m4a")...)
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, in)

	assert.Empty(t, res.Accepted)
	assert.ElementsMatch(t, []string{"Bweni.m4a", "Nyumba.m4a"}, unmatchedNames(res))
}

func TestMatch_CategoryComparedNormalized(t *testing.T) {
	t.Parallel()

	r := record("Vêtements", "ngouwo", "")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("vetements", "Ngouwo.m4a"))

	require.Len(t, res.Accepted, 1)
}

func TestMatch_ConsumedAssetsAreSkipped(t *testing.T) {
	t.Parallel()

	r := record("maison", "bweni", "")
	in := files("maison", "Bweni.m4a")
	in[0].Consumed = true
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, in)

	assert.Empty(t, res.Accepted)
	assert.Empty(t, res.Unmatched)
}

func TestMatch_EmptyTranslationsAndFilenamesNeverMatch(t *testing.T) {
	t.Parallel()

	r := record("maison", "", "  ")
	res := newMatcher(t).Match([]domain.DictionaryRecord{r}, files("maison", ".m4a", "_.mp3"))

	assert.Empty(t, res.Accepted)
	assert.Len(t, res.Unmatched, 2)
}

func TestMatch_Deterministic(t *testing.T) {
	t.Parallel()

	recs := []domain.DictionaryRecord{
		record("animaux", "pare", "pary"),
		record("animaux", "paka", "pisou"),
		record("animaux", "ngombe", "aomby"),
	}
	in := files("animaux", "Pare.m4a", "Pary.m4a", "Paka.m4a", "Pisou.m4a", "Ngombe.m4a", "Aomby k.m4a")
	m := newMatcher(t)

	first := m.Match(recs, in)
	for range 5 {
		assert.Equal(t, first, m.Match(recs, in))
	}
	assert.Len(t, first.Accepted, 6)
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestMatch_AssetOwnedByOneTranslation(t *testing.T) {
	t.Parallel()

	words := []string{"bweni", "bwen", "bwenii", "mtrou", "mtru", "mtroui", "mama", "mamab", "mamac", "nyumba"}
	var recs []domain.DictionaryRecord
	for i, w := range words {
		recs = append(recs, record("maison", w, words[(i+3)%len(words)]))
	}
	var names []string
	for i, w := range words {
		names = append(names, fmt.Sprintf("%s.m4a", w))
		if i%3 == 0 {
			names = append(names, fmt.Sprintf("%s s.m4a", w))
		}
	}
	res := newMatcher(t).Match(recs, files("maison", names...))

	byID := make(map[uuid.UUID]domain.DictionaryRecord, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	owners := make(map[string]string)
	for _, c := range res.Accepted {
		owner := byID[c.RecordID]
		key := domain.Normalize(owner.Translation(c.Language))
		if prev, ok := owners[c.Filename]; ok {
			assert.Equal(t, prev, key, "asset %s shared by differing translations", c.Filename)
		}
		owners[c.Filename] = key
		assert.GreaterOrEqual(t, c.Score, 0.8)
	}

	for _, u := range res.Unmatched {
		_, owned := owners[u.Filename]
		assert.False(t, owned, "unmatched asset %s is also accepted", u.Filename)
	}
}

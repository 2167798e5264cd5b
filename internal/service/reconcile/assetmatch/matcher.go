// Package assetmatch links free-text audio filenames to the translation slots
// of dictionary records.
//
// Matching is done per category. Every slot ranks the assets of its category
// by similarity and proposes to them best-first; an asset is kept by the
// strictest claim and displaced slots fall back to their next candidate.
// One asset may serve several slots only when their translations normalize
// to the same text (shared pronunciation).
package assetmatch

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/similarity"
)

// MinScoreFloor is the lowest threshold a Matcher accepts. Short unrelated
// words routinely score in the 0.5-0.75 range.
const MinScoreFloor = 0.80

// ScoredAsset is one candidate filename with its similarity score.
type ScoredAsset struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

// AmbiguousMatch is a slot whose best candidates could not be told apart.
// It is reported for manual review and never applied.
type AmbiguousMatch struct {
	RecordID   uuid.UUID       `json:"record_id"`
	Language   domain.Language `json:"language"`
	Candidates []ScoredAsset   `json:"candidates"`
}

// Result is the outcome of one matching pass.
type Result struct {
	Accepted  []domain.MatchCandidate
	Ambiguous []AmbiguousMatch
	Unmatched []domain.AssetFile
}

// Matcher assigns assets to record slots. It holds no state between calls
// and is safe for concurrent use.
type Matcher struct {
	minScore float64
}

// New creates a Matcher with the given acceptance threshold.
func New(minScore float64) (*Matcher, error) {
	if minScore < MinScoreFloor || minScore > 1 {
		return nil, domain.NewValidationError("min_score",
			fmt.Sprintf("must be within [%.2f, 1] (got %v)", MinScoreFloor, minScore))
	}
	return &Matcher{minScore: minScore}, nil
}

// MinScore returns the acceptance threshold.
func (m *Matcher) MinScore() float64 { return m.minScore }

// Match partitions records and assets by category and matches each
// partition independently. Assets already marked Consumed are neither
// candidates nor reported as unmatched. Output order follows the first
// appearance of each category, then input order within it.
func (m *Matcher) Match(records []domain.DictionaryRecord, assets []domain.AssetFile) Result {
	var order []string
	recsByCat := make(map[string][]domain.DictionaryRecord)
	assetsByCat := make(map[string][]domain.AssetFile)

	for _, r := range records {
		cat := domain.Normalize(r.Category)
		if _, ok := recsByCat[cat]; !ok {
			if _, seen := assetsByCat[cat]; !seen {
				order = append(order, cat)
			}
		}
		recsByCat[cat] = append(recsByCat[cat], r)
	}
	for _, a := range assets {
		cat := domain.Normalize(a.Category)
		if _, ok := assetsByCat[cat]; !ok {
			if _, seen := recsByCat[cat]; !seen {
				order = append(order, cat)
			}
		}
		assetsByCat[cat] = append(assetsByCat[cat], a)
	}

	var out Result
	for _, cat := range order {
		r := m.matchCategory(recsByCat[cat], assetsByCat[cat])
		out.Accepted = append(out.Accepted, r.Accepted...)
		out.Ambiguous = append(out.Ambiguous, r.Ambiguous...)
		out.Unmatched = append(out.Unmatched, r.Unmatched...)
	}
	return out
}

// ---------------------------------------------------------------------------
// Single-category matching
// ---------------------------------------------------------------------------

type asset struct {
	file   domain.AssetFile
	key    string
	marker domain.Language
}

type pref struct {
	asset      int
	score      float64
	exact      bool
	markerRank int
}

type slot struct {
	recordID uuid.UUID
	lang     domain.Language
	key      string
	prefs    []pref
	next     int
}

// holding is the set of slots sharing one asset. All holders have the same
// normalized translation, hence the same score.
type holding struct {
	key   string
	score float64
	exact bool
	slots []int
}

func (m *Matcher) matchCategory(records []domain.DictionaryRecord, files []domain.AssetFile) Result {
	assets := make([]asset, len(files))
	for i, f := range files {
		key, marker := domain.NormalizeAssetName(f.Filename)
		assets[i] = asset{file: f, key: key, marker: marker}
	}

	slots := m.buildSlots(records, assets)

	var (
		out       Result
		queue     []int
		reviewing = make(map[int]bool)
	)
	for si := range slots {
		s := &slots[si]
		if len(s.prefs) == 0 {
			continue
		}
		if tied := ambiguousTop(s.prefs); len(tied) > 1 {
			cands := make([]ScoredAsset, len(tied))
			for i, p := range tied {
				cands[i] = ScoredAsset{Filename: assets[p.asset].file.Filename, Score: p.score}
				reviewing[p.asset] = true
			}
			out.Ambiguous = append(out.Ambiguous, AmbiguousMatch{
				RecordID:   s.recordID,
				Language:   s.lang,
				Candidates: cands,
			})
			continue
		}
		queue = append(queue, si)
	}

	holds := propose(slots, assets, queue)

	// Collect accepted in slot order.
	owner := make([]int, len(slots))
	for i := range owner {
		owner[i] = -1
	}
	for ai, h := range holds {
		for _, si := range h.slots {
			owner[si] = ai
		}
	}
	for si, ai := range owner {
		if ai < 0 {
			continue
		}
		s := slots[si]
		out.Accepted = append(out.Accepted, domain.MatchCandidate{
			RecordID: s.recordID,
			Language: s.lang,
			Filename: assets[ai].file.Filename,
			Score:    holds[ai].score,
		})
	}

	// Candidates of an ambiguous slot are awaiting review and are not
	// reported as unmatched, even though nothing holds them.
	for ai, a := range assets {
		if a.file.Consumed || reviewing[ai] {
			continue
		}
		if _, held := holds[ai]; held {
			continue
		}
		out.Unmatched = append(out.Unmatched, a.file)
	}
	return out
}

// buildSlots creates one slot per non-empty translation, in record order and
// slot order, with its candidate list ranked best-first.
func (m *Matcher) buildSlots(records []domain.DictionaryRecord, assets []asset) []slot {
	var slots []slot
	for _, r := range records {
		for _, lang := range domain.Languages {
			key := domain.Normalize(r.Translation(lang))
			if key == "" {
				continue
			}
			s := slot{recordID: r.ID, lang: lang, key: key}
			for ai, a := range assets {
				if a.file.Consumed || a.key == "" {
					continue
				}
				score := similarity.Score(key, a.key)
				if score < m.minScore {
					continue
				}
				s.prefs = append(s.prefs, pref{
					asset:      ai,
					score:      score,
					exact:      key == a.key,
					markerRank: markerRank(a.marker, lang),
				})
			}
			slices.SortStableFunc(s.prefs, comparePrefs)
			slots = append(slots, s)
		}
	}
	return slots
}

// comparePrefs ranks by score, then exact over partial, then (exact only)
// by language marker, then by listing order.
func comparePrefs(a, b pref) int {
	if c := cmp.Compare(b.score, a.score); c != 0 {
		return c
	}
	if a.exact != b.exact {
		if a.exact {
			return -1
		}
		return 1
	}
	if a.exact {
		if c := cmp.Compare(a.markerRank, b.markerRank); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.asset, b.asset)
}

// markerRank orders assets by how well their curator marker fits the slot:
// matching marker, no marker, marker for the other language.
func markerRank(marker, lang domain.Language) int {
	switch marker {
	case lang:
		return 0
	case "":
		return 1
	default:
		return 2
	}
}

// ambiguousTop returns the exact candidates tied at the top of a ranked list
// that neither score nor language marker can separate. A result of length
// 0 or 1 means the top candidate is decided.
func ambiguousTop(prefs []pref) []pref {
	top := prefs[0]
	if !top.exact {
		return nil
	}
	n := 1
	for n < len(prefs) && prefs[n].exact && prefs[n].markerRank == top.markerRank {
		n++
	}
	if n == 1 {
		return nil
	}
	return prefs[:n]
}

// propose runs deferred acceptance: queued slots walk down their candidate
// lists, displaced slots are re-queued and resume at their next candidate.
func propose(slots []slot, assets []asset, queue []int) map[int]*holding {
	holds := make(map[int]*holding)

	for len(queue) > 0 {
		si := queue[0]
		queue = queue[1:]
		s := &slots[si]

		for s.next < len(s.prefs) {
			p := s.prefs[s.next]
			s.next++

			h := holds[p.asset]
			if h == nil {
				holds[p.asset] = &holding{key: s.key, score: p.score, exact: p.exact, slots: []int{si}}
				break
			}
			if h.key == s.key {
				h.slots = append(h.slots, si)
				break
			}
			if challengerWins(slots, assets[p.asset], si, p, h) {
				queue = append(queue, h.slots...)
				holds[p.asset] = &holding{key: s.key, score: p.score, exact: p.exact, slots: []int{si}}
				break
			}
		}
	}
	return holds
}

// challengerWins decides a contested asset. Higher score wins; on a tie an
// exact match beats a partial one, then a slot the asset's marker names,
// then the slot that comes first in input order.
func challengerWins(slots []slot, a asset, si int, p pref, h *holding) bool {
	if p.score != h.score {
		return p.score > h.score
	}
	if p.exact != h.exact {
		return p.exact
	}
	if a.marker != "" {
		challengerNamed := slots[si].lang == a.marker
		holderNamed := false
		for _, hs := range h.slots {
			if slots[hs].lang == a.marker {
				holderNamed = true
				break
			}
		}
		if challengerNamed != holderNamed {
			return challengerNamed
		}
	}
	return si < slices.Min(h.slots)
}

// Package dedup collapses dictionary records sharing a normalized headword
// into a single canonical record.
package dedup

import (
	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// Rule names the step that picked a group's canonical record.
type Rule string

const (
	RuleCategoryAffinity Rule = "category_affinity"
	RuleCompleteness     Rule = "completeness"
	RuleCategoryOrder    Rule = "category_order"
	RuleFirstSeen        Rule = "first_seen"
)

// RemovedDuplicate is a record dropped in favour of CanonicalID.
type RemovedDuplicate struct {
	Record      domain.DictionaryRecord
	CanonicalID uuid.UUID
	Rule        Rule
}

// Resolution is the output of Resolve. len(Canonical)+len(Removed) always
// equals the number of input records.
type Resolution struct {
	Canonical []domain.DictionaryRecord
	Removed   []RemovedDuplicate
}

// Resolver applies a Policy. It is immutable and safe for concurrent use.
type Resolver struct {
	t *tables
}

// NewResolver compiles the policy tables.
func NewResolver(p Policy) (*Resolver, error) {
	t, err := compile(p)
	if err != nil {
		return nil, err
	}
	return &Resolver{t: t}, nil
}

// PolicyVersion returns the version of the policy in use.
func (r *Resolver) PolicyVersion() string { return r.t.version }

// Resolve groups records by normalized headword and keeps one record per
// group. Canonical records come out in the order their group was first
// seen; removed records follow group order, then input order.
func (r *Resolver) Resolve(records []domain.DictionaryRecord) Resolution {
	var (
		order  []string
		groups = make(map[string][]int)
	)
	for i, rec := range records {
		key := domain.Normalize(rec.Headword)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	out := Resolution{Canonical: make([]domain.DictionaryRecord, 0, len(order))}
	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			out.Canonical = append(out.Canonical, records[members[0]])
			continue
		}

		winner, rule := r.pick(key, records, members)
		canon := records[winner]
		out.Canonical = append(out.Canonical, canon)
		for _, i := range members {
			if i == winner {
				continue
			}
			out.Removed = append(out.Removed, RemovedDuplicate{
				Record:      records[i],
				CanonicalID: canon.ID,
				Rule:        rule,
			})
		}
	}
	return out
}

// pick runs the rules in order. Each rule either decides the group or
// narrows the candidate set handed to the next one.
func (r *Resolver) pick(headword string, records []domain.DictionaryRecord, members []int) (int, Rule) {
	cands := members

	if home := r.t.homeOf(headword); home != "" {
		inHome := filter(cands, func(i int) bool {
			return domain.Normalize(records[i].Category) == home
		})
		if len(inHome) == 1 {
			return inHome[0], RuleCategoryAffinity
		}
		if len(inHome) > 1 {
			cands = inHome
		}
	}

	complete := filter(cands, func(i int) bool { return records[i].IsComplete() })
	if len(complete) == 1 {
		return complete[0], RuleCompleteness
	}
	if len(complete) > 1 {
		cands = complete
	}

	best := r.t.rankOf(domain.Normalize(records[cands[0]].Category))
	for _, i := range cands[1:] {
		best = min(best, r.t.rankOf(domain.Normalize(records[i].Category)))
	}
	top := filter(cands, func(i int) bool {
		return r.t.rankOf(domain.Normalize(records[i].Category)) == best
	})
	if len(top) == 1 {
		return top[0], RuleCategoryOrder
	}

	return top[0], RuleFirstSeen
}

func filter(idx []int, keep func(int) bool) []int {
	var out []int
	for _, i := range idx {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

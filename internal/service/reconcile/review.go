package reconcile

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/assetmatch"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/dedup"
)

type slotKey struct {
	id   uuid.UUID
	lang domain.Language
}

// fileKey addresses one file within a normalized category.
type fileKey struct {
	category string
	filename string
}

// fileOwner is the slot holding a file and its normalized translation.
type fileOwner struct {
	slot slotKey
	text string
}

// owners tracks which translation each file serves after this run. A file
// may serve several slots only when they share the normalized translation.
type owners map[fileKey]fileOwner

// claim records slot as owner of the file unless a slot with another
// translation already holds it. It returns the current owner and whether
// the claim is compatible with it.
func (o owners) claim(category, filename string, slot slotKey, text string) (fileOwner, bool) {
	k := fileKey{domain.Normalize(category), filename}
	if cur, ok := o[k]; ok {
		return cur, cur.text == text
	}
	o[k] = fileOwner{slot: slot, text: text}
	return fileOwner{slot: slot, text: text}, true
}

// inheritance is an asset reference a canonical record takes over from one
// of its removed duplicates.
type inheritance struct {
	target    slotKey
	from      uuid.UUID
	ref       domain.AssetRef
	srcDir    string
	dstDir    string
	needsCopy bool
	reportIdx int
}

// plan is what Applying writes.
type plan struct {
	// original and merged canonical records, index-aligned.
	original []domain.DictionaryRecord
	merged   []domain.DictionaryRecord
	inherit  []inheritance
	remove   []uuid.UUID
}

// review fills the report and prepares the write plan. Accepted matches are
// merged into copies of the canonical records; ambiguous slots are left
// untouched.
func (s *Service) review(res dedup.Resolution, ps *partitions, matched assetmatch.Result, rep *Report) *plan {
	p := &plan{
		original: res.Canonical,
		merged:   make([]domain.DictionaryRecord, len(res.Canonical)),
	}
	index := make(map[uuid.UUID]int, len(res.Canonical))
	for i, rec := range res.Canonical {
		p.merged[i] = rec.Clone()
		index[rec.ID] = i
	}

	now := s.now()
	accepted := make(map[slotKey]struct{}, len(matched.Accepted))
	for _, c := range matched.Accepted {
		rep.Accepted = append(rep.Accepted, AcceptedMatch{
			RecordID: c.RecordID,
			Language: c.Language,
			Filename: c.Filename,
			Score:    c.Score,
		})
		accepted[slotKey{c.RecordID, c.Language}] = struct{}{}

		i, ok := index[c.RecordID]
		if !ok {
			continue
		}
		rec := &p.merged[i]
		ref := &domain.AssetRef{Filename: c.Filename, Confidence: c.Score, MatchedAt: now}
		if prev := rec.Asset(c.Language); prev != nil && prev.Filename == c.Filename {
			ref.MatchedAt = prev.MatchedAt
		}
		rec.SetAsset(c.Language, ref)
	}

	held := make(owners)
	for _, c := range matched.Accepted {
		if i, ok := index[c.RecordID]; ok {
			rec := p.merged[i]
			held.claim(rec.Category, c.Filename, slotKey{c.RecordID, c.Language}, domain.Normalize(rec.Translation(c.Language)))
		}
	}
	releaseStale(p.merged, accepted, held, rep)

	rep.Ambiguous = append(rep.Ambiguous, matched.Ambiguous...)

	for _, rd := range res.Removed {
		p.remove = append(p.remove, rd.Record.ID)
	}

	p.inherit = planInheritance(res.Removed, p.merged, index, accepted, held, ps, now)

	// Unmatched means no record references the file once the plan is written.
	for _, f := range matched.Unmatched {
		if _, ok := held[fileKey{domain.Normalize(f.Category), f.Filename}]; ok {
			continue
		}
		rep.UnmatchedAssets = append(rep.UnmatchedAssets, f.Filename)
	}
	for n := range p.inherit {
		in := &p.inherit[n]
		in.reportIdx = len(rep.Inherited)
		rep.Inherited = append(rep.Inherited, InheritedAsset{
			RecordID:     in.target.id,
			Language:     in.target.lang,
			Filename:     in.ref.Filename,
			FromRecordID: in.from,
			FromCategory: in.srcDir,
		})
	}
	return p
}

// planInheritance picks, for every canonical slot left without a reference,
// the first removed duplicate that held an asset for the same translation.
// A reference from another category needs its file copied over; it is
// skipped when the canonical category already has a file of that name.
// A file held by a slot with a different translation is never inherited.
func planInheritance(
	removed []dedup.RemovedDuplicate,
	merged []domain.DictionaryRecord,
	index map[uuid.UUID]int,
	accepted map[slotKey]struct{},
	held owners,
	ps *partitions,
	now time.Time,
) []inheritance {
	var (
		out   []inheritance
		taken = make(map[slotKey]struct{})
	)
	for _, rd := range removed {
		i, ok := index[rd.CanonicalID]
		if !ok {
			continue
		}
		canon := merged[i]
		for _, lang := range domain.Languages {
			key := slotKey{canon.ID, lang}
			src := rd.Record.Asset(lang)
			if src == nil || src.Filename == "" {
				continue
			}
			if _, ok := accepted[key]; ok {
				continue
			}
			if _, ok := taken[key]; ok {
				continue
			}
			if canon.Asset(lang) != nil {
				continue
			}
			want := domain.Normalize(canon.Translation(lang))
			if want == "" || want != domain.Normalize(rd.Record.Translation(lang)) {
				continue
			}

			in := inheritance{
				target: key,
				from:   rd.Record.ID,
				ref:    domain.AssetRef{Filename: src.Filename, Confidence: src.Confidence, MatchedAt: src.MatchedAt},
				srcDir: rd.Record.Category,
				dstDir: canon.Category,
			}
			if in.ref.MatchedAt.IsZero() {
				in.ref.MatchedAt = now
			}
			if domain.Normalize(rd.Record.Category) != domain.Normalize(canon.Category) {
				if p := ps.lookup(canon.Category); p != nil && p.has(src.Filename) {
					continue
				}
				in.needsCopy = true
			}
			if _, ok := held.claim(canon.Category, src.Filename, key, want); !ok {
				continue
			}
			taken[key] = struct{}{}
			out = append(out, in)
		}
	}
	return out
}

// releaseStale clears references kept from earlier runs whose file was
// accepted in this run for a different translation. Surviving references
// are added to held so inheritance sees them.
func releaseStale(merged []domain.DictionaryRecord, accepted map[slotKey]struct{}, held owners, rep *Report) {
	for i := range merged {
		rec := &merged[i]
		for _, lang := range domain.Languages {
			key := slotKey{rec.ID, lang}
			if _, ok := accepted[key]; ok {
				continue
			}
			ref := rec.Asset(lang)
			if ref == nil || ref.Filename == "" {
				continue
			}
			cur, ok := held.claim(rec.Category, ref.Filename, key, domain.Normalize(rec.Translation(lang)))
			if ok {
				continue
			}
			rep.Released = append(rep.Released, ReleasedAsset{
				RecordID: rec.ID,
				Language: lang,
				Filename: ref.Filename,
				HeldBy:   cur.slot.id,
			})
			rec.SetAsset(lang, nil)
		}
	}
}

// sameAssets reports whether two records reference the same files with the
// same confidence in every slot. MatchedAt is ignored.
func sameAssets(a, b domain.DictionaryRecord) bool {
	for _, lang := range domain.Languages {
		x, y := a.Asset(lang), b.Asset(lang)
		if (x == nil) != (y == nil) {
			return false
		}
		if x != nil && (x.Filename != y.Filename || x.Confidence != y.Confidence) {
			return false
		}
	}
	return true
}

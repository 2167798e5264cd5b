package reconcile

import (
	"context"
	"log/slog"
	"sort"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/assetmatch"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/similarity"
)

// partition is one normalized category: its canonical records and the
// asset files found under any of its directory spellings.
type partition struct {
	key     string
	dirs    []string
	records []domain.DictionaryRecord
	listed  []domain.AssetFile
	files   []domain.AssetFile
	names   map[string]struct{}
}

func (p *partition) addDir(dir string) {
	for _, d := range p.dirs {
		if d == dir {
			return
		}
	}
	p.dirs = append(p.dirs, dir)
}

func (p *partition) addListed(dir string, filenames []string) {
	for _, name := range filenames {
		if _, dup := p.names[name]; dup {
			continue
		}
		p.names[name] = struct{}{}
		p.listed = append(p.listed, domain.AssetFile{Filename: name, Category: dir})
	}
}

// has reports whether a file of that name was listed for the category.
func (p *partition) has(filename string) bool {
	_, ok := p.names[filename]
	return ok
}

type partitions struct {
	list  []*partition
	byKey map[string]*partition
}

func (ps *partitions) get(category string) *partition {
	key := domain.Normalize(category)
	if p, ok := ps.byKey[key]; ok {
		return p
	}
	p := &partition{key: key, names: make(map[string]struct{})}
	ps.byKey[key] = p
	ps.list = append(ps.list, p)
	return p
}

// lookup returns the partition of category without creating it.
func (ps *partitions) lookup(category string) *partition {
	return ps.byKey[domain.Normalize(category)]
}

// partitionRecords groups records by normalized category in first-seen order.
func partitionRecords(records []domain.DictionaryRecord) *partitions {
	ps := &partitions{byKey: make(map[string]*partition)}
	for _, rec := range records {
		p := ps.get(rec.Category)
		p.addDir(rec.Category)
		p.records = append(p.records, rec)
	}
	return ps
}

// listAssets fills every partition's listing. With given == nil each record
// category directory is listed through the asset store; otherwise the given
// listing is used as is, in sorted category order.
func (s *Service) listAssets(ctx context.Context, ps *partitions, given map[string][]string) error {
	if given != nil {
		dirs := make([]string, 0, len(given))
		for dir := range given {
			dirs = append(dirs, dir)
		}
		sort.Strings(dirs)
		for _, dir := range dirs {
			p := ps.get(dir)
			p.addDir(dir)
			p.addListed(dir, given[dir])
		}
		return nil
	}

	for _, p := range ps.list {
		for _, dir := range p.dirs {
			names, err := s.assets.ListFiles(ctx, dir)
			if err != nil {
				return &domain.AssetIOError{Category: dir, Err: err}
			}
			p.addListed(dir, names)
		}
	}
	return nil
}

// sniffLen is how much of a file content type detection looks at.
const sniffLen = 3072

// headReader is implemented by asset stores that can read a file prefix
// without downloading the whole file.
type headReader interface {
	ReadHead(ctx context.Context, category, filename string, n int64) ([]byte, error)
}

// readHead returns at most sniffLen leading bytes of one file.
func (s *Service) readHead(ctx context.Context, f domain.AssetFile) ([]byte, error) {
	if hr, ok := s.assets.(headReader); ok {
		return hr.ReadHead(ctx, f.Category, f.Filename, sniffLen)
	}
	data, err := s.assets.ReadFile(ctx, f.Category, f.Filename)
	if err != nil {
		return nil, err
	}
	return data[:min(len(data), sniffLen)], nil
}

type readResult struct {
	contentType string
	err         error
}

// readAssets reads the head of every listed file with bounded parallelism.
// Files that cannot be read or are empty are reported and left out of
// matching.
func (s *Service) readAssets(ctx context.Context, ps *partitions, rep *Report) {
	var all []domain.AssetFile
	for _, p := range ps.list {
		all = append(all, p.listed...)
	}
	results := make([]readResult, len(all))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, f := range all {
		g.Go(func() error {
			data, err := s.readHead(ctx, f)
			switch {
			case err != nil:
				results[i].err = err
			case len(data) == 0:
				results[i].err = domain.ErrEmptyAsset
			default:
				results[i].contentType = mimetype.Detect(data).String()
			}
			return nil
		})
	}
	_ = g.Wait()

	i := 0
	for _, p := range ps.list {
		for _, f := range p.listed {
			res := results[i]
			i++
			if res.err != nil {
				aerr := &domain.AssetIOError{Category: f.Category, Filename: f.Filename, Err: res.err}
				rep.AssetErrors = append(rep.AssetErrors, AssetError{
					Category: f.Category,
					Filename: f.Filename,
					Error:    res.err.Error(),
				})
				s.log.WarnContext(ctx, "asset skipped", slog.String("error", aerr.Error()))
				continue
			}
			if rep.ContentTypes == nil {
				rep.ContentTypes = make(map[string]int)
			}
			rep.ContentTypes[res.contentType]++
			p.files = append(p.files, f)
		}
	}
}

// markHeld flags files that a surviving record already references from a
// slot the matcher cannot fill, either because its translation is empty or
// because no listed file reaches the threshold for it. Such references are
// kept as they are, so their files are not offered to other slots.
func (p *partition) markHeld(minScore float64) {
	byName := make(map[string]int, len(p.files))
	keys := make([]string, len(p.files))
	for i, f := range p.files {
		byName[f.Filename] = i
		keys[i], _ = domain.NormalizeAssetName(f.Filename)
	}

	for _, rec := range p.records {
		for _, lang := range domain.Languages {
			ref := rec.Asset(lang)
			if ref == nil {
				continue
			}
			i, ok := byName[ref.Filename]
			if !ok || p.files[i].Consumed {
				continue
			}
			if canClaim(domain.Normalize(rec.Translation(lang)), keys, minScore) {
				continue
			}
			p.files[i].Consumed = true
		}
	}
}

// canClaim reports whether any file key scores at least minScore against
// the translation key.
func canClaim(key string, fileKeys []string, minScore float64) bool {
	if key == "" {
		return false
	}
	for _, fk := range fileKeys {
		if fk != "" && similarity.Score(key, fk) >= minScore {
			return true
		}
	}
	return false
}

// matchPartitions runs the matcher once per category on a bounded worker
// pool and concatenates the results in partition order. Partitions share no
// state, so workers need no locking.
func (s *Service) matchPartitions(parts []*partition) assetmatch.Result {
	results := make([]assetmatch.Result, len(parts))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, p := range parts {
		g.Go(func() error {
			p.markHeld(s.matcher.MinScore())
			results[i] = s.matcher.Match(p.records, p.files)
			return nil
		})
	}
	_ = g.Wait()

	var out assetmatch.Result
	for _, r := range results {
		out.Accepted = append(out.Accepted, r.Accepted...)
		out.Ambiguous = append(out.Ambiguous, r.Ambiguous...)
		out.Unmatched = append(out.Unmatched, r.Unmatched...)
	}
	return out
}

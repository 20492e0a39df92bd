package search

import (
	"log/slog"
	"sort"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/query"
)

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 100

// Engine executes structured queries. It never mutates the store and
// never calls the model collaborator.
type Engine struct {
	db     index.MetadataIndex
	logger *slog.Logger
}

// NewEngine creates an Engine over the given metadata store.
func NewEngine(db index.MetadataIndex, logger *slog.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// Retrieve runs every exact-match criterion of q, unions the results, and
// falls back to a content scan when no structured criterion matched.
// Results are ranked by distinct-criteria count (ties keep stable
// discovery order), deduplicated by path, and truncated to limit.
func (e *Engine) Retrieve(q query.Structured, limit int) []Hit {
	if limit <= 0 {
		limit = DefaultLimit
	}

	acc := newAccumulator()

	for _, r := range q.Dates {
		paths, err := e.db.QueryByDate(r.From, r.To)
		if err != nil {
			e.logger.Warn("search: date query failed", slog.String("from", r.From), slog.String("to", r.To), slog.String("error", err.Error()))
			continue
		}
		acc.add(paths, MatchDate)
	}
	for _, tag := range q.Tags {
		paths, err := e.db.QueryByTag(tag)
		if err != nil {
			e.logger.Warn("search: tag query failed", slog.String("tag", tag), slog.String("error", err.Error()))
			continue
		}
		acc.add(paths, MatchTag)
	}
	for _, name := range q.Filenames {
		paths, err := e.db.QueryByFilename(name)
		if err != nil {
			e.logger.Warn("search: filename query failed", slog.String("fragment", name), slog.String("error", err.Error()))
			continue
		}
		acc.add(paths, MatchFilename)
	}

	// Content fallback: no structured hits, scan previews by keyword.
	if acc.empty() {
		keywords := q.Keywords
		if len(keywords) == 0 {
			keywords = query.Keywords(q.Raw)
		}
		for _, kw := range keywords {
			paths, err := e.db.QueryByContent(kw)
			if err != nil {
				e.logger.Warn("search: content query failed", slog.String("keyword", kw), slog.String("error", err.Error()))
				continue
			}
			acc.add(paths, MatchContent)
		}
	}

	hits := acc.ranked()
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// accumulator unions per-criterion result sets, tracking distinct criteria
// counts and first-discovery order for deterministic ranking.
type accumulator struct {
	order []string
	hits  map[string]*Hit
}

func newAccumulator() *accumulator {
	return &accumulator{hits: make(map[string]*Hit)}
}

// add records one criterion's result set.
func (a *accumulator) add(paths []string, kind MatchKind) {
	for _, p := range paths {
		h, ok := a.hits[p]
		if !ok {
			h = &Hit{Path: p}
			a.hits[p] = h
			a.order = append(a.order, p)
		}
		h.Score++
		if !hasKind(h.Kinds, kind) {
			h.Kinds = append(h.Kinds, kind)
		}
	}
}

func (a *accumulator) empty() bool {
	return len(a.order) == 0
}

// ranked returns hits sorted by score descending; ties keep discovery
// order (stable, no randomness).
func (a *accumulator) ranked() []Hit {
	out := make([]Hit, 0, len(a.order))
	for _, p := range a.order {
		out = append(out, *a.hits[p])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func hasKind(kinds []MatchKind, k MatchKind) bool {
	for _, existing := range kinds {
		if existing == k {
			return true
		}
	}
	return false
}

// Package firstrun implements C5: on a content type's first-ever run
// it caps how many items are emitted to avoid flooding the feed with
// historical backlog, while still persisting everything observed so
// later runs treat it as already seen (spec.md §4.5, §9 Open Question
// (c)).
package firstrun

import (
	"context"
	"sort"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/config"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

// Cappable is anything the policy can select among: a candidate feed
// item plus the timestamp it is ranked by ("most recent" per spec.md
// §4.5 — first_posted for content items, announced_at for
// announcements).
type Cappable interface {
	RankTime() int64 // unix seconds; higher sorts first
}

// Policy is C5.
type Policy struct {
	store store.Store
	caps  map[canon.ContentType]int
}

// New builds a Policy from the configured per-type caps. A zero or
// absent cap means uncapped, matching reddit/status in spec.md §4.5's
// table.
func New(s store.Store, cfg config.FirstRunConfig) *Policy {
	return &Policy{
		store: s,
		caps: map[canon.ContentType]int{
			canon.ContentQuestion:    cfg.Question,
			canon.ContentBlog:        cfg.Blog,
			canon.ContentReleaseNote: cfg.ReleaseNote,
			canon.ContentDeployNote:  cfg.DeployNote,
		},
	}
}

// Apply caps items[contentType] to its configured limit when this is
// the type's first-ever run; all items are still considered
// "persisted" by the caller regardless of this function's selection —
// the cap governs emission only. Returns the subset to emit.
func (p *Policy) Apply(ctx context.Context, contentType canon.ContentType, items []Cappable) ([]Cappable, error) {
	limit, capped := p.caps[contentType]
	if !capped || limit <= 0 {
		return items, nil
	}

	isFirst, err := p.store.IsFirstRunForType(ctx, contentType)
	if err != nil {
		return nil, err
	}
	if !isFirst || len(items) <= limit {
		return items, nil
	}

	sorted := make([]Cappable, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RankTime() > sorted[j].RankTime() })
	return sorted[:limit], nil
}

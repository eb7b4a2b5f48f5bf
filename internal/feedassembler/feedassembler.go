// Package feedassembler implements C7: it merges the classifier's and
// discussion tracker's per-run output into one ordered, deduplicated
// item sequence ready for the RSS serializer (spec.md §4.7).
package feedassembler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/enrich"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

// group ranks the four emission buckets from spec.md §4.7's ordering
// priority; lower sorts first.
type group int

const (
	groupReleaseDeploy group = iota
	groupStatus
	groupCommunity
	groupReddit
)

// Item is one fully-formed feed entry, ready for RSS 2.0 serialization.
type Item struct {
	GUID        string
	Title       string
	Description string
	Category    string
	PubDate     time.Time

	group group
}

// Input is one candidate for assembly, carrying enough context to build
// an Item and to sort it into the right group.
type Input struct {
	GUID        string
	RawTitle    string
	Description string
	Category    string
	PubDate     time.Time
	Verdict     canon.Verdict
	ContentType canon.ContentType
}

// Assembler is C7.
type Assembler struct {
	store store.Store
}

// New builds an Assembler.
func New(s store.Store) *Assembler {
	return &Assembler{store: s}
}

// Assemble applies spec.md §4.7's badge, sanitize, group, sort, and
// cross-run dedup rules to inputs, returning the ordered sequence to
// hand the serializer. seen tracks GUIDs already chosen earlier in this
// same call, so a GUID repeated within inputs is emitted once; it is not
// kept between calls.
func (a *Assembler) Assemble(ctx context.Context, inputs []Input) ([]Item, error) {
	seen := map[string]bool{}
	var items []Item

	for _, in := range inputs {
		if seen[in.GUID] {
			continue
		}

		if in.Verdict != canon.VerdictUpdate {
			emitted, err := a.store.WasEmitted(ctx, in.GUID)
			if err != nil {
				return nil, canon.WrapStore("feedassembler.was_emitted", err)
			}
			if emitted {
				continue
			}
		}

		seen[in.GUID] = true
		items = append(items, Item{
			GUID:        in.GUID,
			Title:       badge(in.Verdict) + " " + in.RawTitle,
			Description: enrich.Sanitize(in.Description),
			Category:    in.Category,
			PubDate:     in.PubDate,
			group:       groupFor(in.ContentType),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].group != items[j].group {
			return items[i].group < items[j].group
		}
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].PubDate.After(items[j].PubDate)
	})

	return items, nil
}

// MarkEmitted records every item's GUID as emitted for this run, per
// spec.md §4.7's cross-run dedup rule. Callers invoke this after the
// serializer has succeeded (spec.md §4.8 step 6).
func (a *Assembler) MarkEmitted(ctx context.Context, items []Item, at time.Time) error {
	for _, it := range items {
		if err := a.store.MarkEmitted(ctx, it.GUID, at); err != nil {
			return canon.WrapStore("feedassembler.mark_emitted", err)
		}
	}
	return nil
}

func badge(v canon.Verdict) string {
	switch v {
	case canon.VerdictNew:
		return "[NEW]"
	case canon.VerdictUpdate:
		return "[UPDATE]"
	default:
		return ""
	}
}

func groupFor(ct canon.ContentType) group {
	switch ct {
	case canon.ContentReleaseNote, canon.ContentDeployNote, canon.ContentChangelog:
		return groupReleaseDeploy
	case canon.ContentStatus:
		return groupStatus
	case canon.ContentBlog, canon.ContentQuestion:
		return groupCommunity
	case canon.ContentReddit:
		return groupReddit
	default:
		return groupCommunity
	}
}

// ContentTypeTag renders the display tag spec.md §4.7 shows in its
// title examples ("Canvas Release Notes (YYYY-MM-DD)", "Question Forum
// - <title>").
func ContentTypeTag(ct canon.ContentType, pageDateOrTitle string) string {
	switch ct {
	case canon.ContentReleaseNote:
		return fmt.Sprintf("Canvas Release Notes (%s)", pageDateOrTitle)
	case canon.ContentDeployNote:
		return fmt.Sprintf("Canvas Deploy Notes (%s)", pageDateOrTitle)
	case canon.ContentQuestion:
		return fmt.Sprintf("Question Forum - %s", pageDateOrTitle)
	case canon.ContentBlog:
		return fmt.Sprintf("Community Blog - %s", pageDateOrTitle)
	case canon.ContentReddit:
		return fmt.Sprintf("Reddit - %s", pageDateOrTitle)
	case canon.ContentStatus:
		return fmt.Sprintf("Status - %s", pageDateOrTitle)
	default:
		return pageDateOrTitle
	}
}

// Package discussion implements C4: it compares each run's observed
// state of a community post (blog or Q&A) against the last-tracked
// state and decides whether the post must be re-emitted.
package discussion

import (
	"context"
	"time"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

// Observation is the live state of one community post as scraped this
// run.
type Observation struct {
	SourceID     string
	CommentCount int
	LastCommentAt time.Time
	PostedAt     time.Time // first_posted, used when there is no prior comment activity to compare
}

// Update is C4's output: the verdict plus the summarization mode C6
// should use to describe the post.
type Update struct {
	SourceID string
	Verdict  canon.Verdict
	// PriorCommentCount is set on an UPDATE verdict (zero otherwise): the
	// comment count observed at last_emitted_at, so the enrichment prompt
	// can describe "what changed" rather than the whole thread from scratch.
	PriorCommentCount int
}

// Tracker is C4.
type Tracker struct {
	store store.Store
}

// New builds a Tracker.
func New(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// Evaluate implements spec.md §4.4: NEW if untracked, UPDATE if either
// the comment count or last-comment timestamp advanced since the prior
// observation, SKIP otherwise. On any non-SKIP verdict the tracked
// state is overwritten with the current observation and
// last_emitted_at = now.
func (t *Tracker) Evaluate(ctx context.Context, obs Observation, now time.Time) (*Update, error) {
	prev, err := t.store.GetDiscussionTracking(ctx, obs.SourceID)
	if err != nil {
		return nil, err
	}

	update := &Update{SourceID: obs.SourceID}
	switch {
	case prev == nil:
		update.Verdict = canon.VerdictNew
	case prev.CommentCount < obs.CommentCount || prev.LastCommentAt.Before(obs.LastCommentAt):
		update.Verdict = canon.VerdictUpdate
		update.PriorCommentCount = prev.CommentCount
	default:
		update.Verdict = canon.VerdictSkip
	}

	if update.Verdict == canon.VerdictSkip {
		return update, nil
	}

	lastComment := obs.LastCommentAt
	if lastComment.IsZero() {
		lastComment = obs.PostedAt
	}
	err = t.store.UpsertDiscussionTracking(ctx, canon.DiscussionTracking{
		SourceID:      obs.SourceID,
		CommentCount:  obs.CommentCount,
		LastCommentAt: lastComment,
		LastEmittedAt: now,
	})
	return update, err
}

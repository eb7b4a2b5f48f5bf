package discussion

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEvaluate_NewWhenUntracked(t *testing.T) {
	ctx := context.Background()
	tr := New(newTestStore(t))

	u, err := tr.Evaluate(ctx, Observation{SourceID: "blog_1", CommentCount: 2, LastCommentAt: time.Now()}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, canon.VerdictNew, u.Verdict)
}

func TestEvaluate_S4Update(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tr := New(s)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertDiscussionTracking(ctx, canon.DiscussionTracking{
		SourceID: "blog_555", CommentCount: 4, LastCommentAt: t0, LastEmittedAt: t0,
	}))

	t1 := t0.Add(24 * time.Hour)
	u, err := tr.Evaluate(ctx, Observation{SourceID: "blog_555", CommentCount: 7, LastCommentAt: t1}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, canon.VerdictUpdate, u.Verdict)
	assert.Equal(t, 4, u.PriorCommentCount)

	got, err := s.GetDiscussionTracking(ctx, "blog_555")
	require.NoError(t, err)
	assert.Equal(t, 7, got.CommentCount)
}

func TestEvaluate_SkipWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tr := New(s)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertDiscussionTracking(ctx, canon.DiscussionTracking{
		SourceID: "blog_9", CommentCount: 3, LastCommentAt: t0, LastEmittedAt: t0,
	}))

	u, err := tr.Evaluate(ctx, Observation{SourceID: "blog_9", CommentCount: 3, LastCommentAt: t0}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, canon.VerdictSkip, u.Verdict)
}

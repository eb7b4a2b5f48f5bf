package feedassembler

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

func TestAssemble_OrdersReleaseNotesBeforeReddit(t *testing.T) {
	ctx := context.Background()
	a := New(newTestStore(t))

	now := time.Now()
	items, err := a.Assemble(ctx, []Input{
		{GUID: "r1", RawTitle: "reddit post", ContentType: canon.ContentReddit, Verdict: canon.VerdictNew, PubDate: now},
		{GUID: "rn1", RawTitle: "release note", ContentType: canon.ContentReleaseNote, Verdict: canon.VerdictNew, PubDate: now},
		{GUID: "s1", RawTitle: "status incident", ContentType: canon.ContentStatus, Verdict: canon.VerdictNew, PubDate: now},
		{GUID: "b1", RawTitle: "blog post", ContentType: canon.ContentBlog, Verdict: canon.VerdictNew, PubDate: now},
	})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "rn1", items[0].GUID)
	assert.Equal(t, "s1", items[1].GUID)
	assert.Equal(t, "b1", items[2].GUID)
	assert.Equal(t, "r1", items[3].GUID)
}

func TestAssemble_DescendingWithinGroup(t *testing.T) {
	ctx := context.Background()
	a := New(newTestStore(t))

	older := time.Now().Add(-24 * time.Hour)
	newer := time.Now()
	items, err := a.Assemble(ctx, []Input{
		{GUID: "old", RawTitle: "old post", ContentType: canon.ContentBlog, Verdict: canon.VerdictNew, PubDate: older},
		{GUID: "new", RawTitle: "new post", ContentType: canon.ContentBlog, Verdict: canon.VerdictNew, PubDate: newer},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].GUID)
	assert.Equal(t, "old", items[1].GUID)
}

func TestAssemble_DropsDuplicateGUIDWithinRun(t *testing.T) {
	ctx := context.Background()
	a := New(newTestStore(t))

	items, err := a.Assemble(ctx, []Input{
		{GUID: "dup", RawTitle: "first", ContentType: canon.ContentBlog, Verdict: canon.VerdictNew, PubDate: time.Now()},
		{GUID: "dup", RawTitle: "second", ContentType: canon.ContentBlog, Verdict: canon.VerdictNew, PubDate: time.Now()},
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Contains(t, items[0].Title, "first")
}

func TestAssemble_DropsAlreadyEmittedUnlessUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := New(s)
	require.NoError(t, s.MarkEmitted(ctx, "prior", time.Now()))

	items, err := a.Assemble(ctx, []Input{
		{GUID: "prior", RawTitle: "already emitted", ContentType: canon.ContentBlog, Verdict: canon.VerdictNew, PubDate: time.Now()},
	})
	require.NoError(t, err)
	assert.Len(t, items, 0)

	items, err = a.Assemble(ctx, []Input{
		{GUID: "prior", RawTitle: "discussion updated", ContentType: canon.ContentBlog, Verdict: canon.VerdictUpdate, PubDate: time.Now()},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Title, "[UPDATE]")
}

func TestAssemble_SanitizesDescriptionHTML(t *testing.T) {
	ctx := context.Background()
	a := New(newTestStore(t))

	items, err := a.Assemble(ctx, []Input{
		{GUID: "g1", RawTitle: "t", Description: `<script>alert(1)</script><p>safe</p>`, ContentType: canon.ContentBlog, Verdict: canon.VerdictNew, PubDate: time.Now()},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0].Description, "<script>")
	assert.Contains(t, items[0].Description, "<p>safe</p>")
}

func TestContentTypeTag_ReleaseNote(t *testing.T) {
	assert.Equal(t, "Canvas Release Notes (2026-01-15)", ContentTypeTag(canon.ContentReleaseNote, "2026-01-15"))
}

func TestContentTypeTag_QuestionForum(t *testing.T) {
	assert.Equal(t, "Question Forum - How do I reset a quiz?", ContentTypeTag(canon.ContentQuestion, "How do I reset a quiz?"))
}

package classifier

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/htmlparser"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestClassifyReleaseNotePage_S1FirstRunNewOption(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	page := &htmlparser.ReleaseNotePage{
		PageDate: time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC),
		Sections: []htmlparser.Section{{
			Kind:       canon.SectionNewFeatures,
			CategoryH3: "Assignments",
			Entries: []htmlparser.Entry{{
				H4Title:  "Document Processing App",
				AnchorID: "doc-processor",
				Table:    htmlparser.TableFields{FeatureOptionValue: "Document Processor"},
			}},
		}},
	}

	results, err := c.ClassifyReleaseNotePage(ctx, "release_note_664643", page)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "assignments", results[0].FeatureID)
	assert.Equal(t, "document_processor", results[0].OptionID)
	assert.Equal(t, canon.VerdictNew, results[0].Verdict)

	n, err := s.CountAnnouncements(ctx, "document_processor", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClassifyReleaseNotePage_S2SecondAnnouncementIsUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	first := &htmlparser.ReleaseNotePage{
		PageDate: time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC),
		Sections: []htmlparser.Section{{
			CategoryH3: "Assignments",
			Entries: []htmlparser.Entry{{
				H4Title: "Document Processing App", AnchorID: "doc-processor",
				Table: htmlparser.TableFields{FeatureOptionValue: "Document Processor"},
			}},
		}},
	}
	_, err := c.ClassifyReleaseNotePage(ctx, "release_note_1", first)
	require.NoError(t, err)

	second := &htmlparser.ReleaseNotePage{
		PageDate: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Sections: []htmlparser.Section{{
			CategoryH3: "Assignments",
			Entries: []htmlparser.Entry{{
				H4Title: "Document Processing App", AnchorID: "doc-processor-2",
				RawContent: "Now available in beta.",
				Table:      htmlparser.TableFields{FeatureOptionValue: "Document Processor"},
			}},
		}},
	}
	results, err := c.ClassifyReleaseNotePage(ctx, "release_note_2", second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, canon.VerdictUpdate, results[0].Verdict)

	opt, err := s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Document Processor"})
	require.NoError(t, err)
	assert.Equal(t, canon.StatusPreview, opt.Status)
	require.NotNil(t, opt.BetaDate)
	assert.Equal(t, 2026, opt.BetaDate.Year())
}

func TestClassifyReleaseNotePage_S3SettingWhenNA(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	page := &htmlparser.ReleaseNotePage{
		PageDate: time.Now(),
		Sections: []htmlparser.Section{{
			CategoryH3: "Grades",
			Entries: []htmlparser.Entry{{
				H4Title: "Late Policy Update", AnchorID: "late-policy",
				Table: htmlparser.TableFields{FeatureOptionValue: "N/A"},
			}},
		}},
	}
	results, err := c.ClassifyReleaseNotePage(ctx, "c1", page)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].OptionID)
	assert.NotEmpty(t, results[0].SettingID)
}

func TestClassifyEntry_NoCategoryIsClassificationError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	_, err := c.classifyEntry(ctx, "c1", "", canon.SectionOther, htmlparser.Entry{AnchorID: "x"}, time.Now())
	assert.ErrorIs(t, err, canon.ErrClassification)
}

func TestClassifyEntry_DuplicateAnchorIsSkippedNotFatal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	entry := htmlparser.Entry{H4Title: "Thing", AnchorID: "thing", Table: htmlparser.TableFields{FeatureOptionValue: "Thing"}}
	page := &htmlparser.ReleaseNotePage{PageDate: time.Now(), Sections: []htmlparser.Section{{CategoryH3: "Grades", Entries: []htmlparser.Entry{entry, entry}}}}

	results, err := c.ClassifyReleaseNotePage(ctx, "c1", page)
	require.NoError(t, err)
	assert.Len(t, results, 1) // the duplicate is logged and dropped, not fatal
}

func TestMatchCommunityMention_HighOverlapAutoLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Anonymous Grading"})
	require.NoError(t, err)

	res, err := c.MatchCommunityMention(ctx, "reddit:1", "Anonymous Grading is broken", "", canon.MentionDiscusses)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.GreaterOrEqual(t, res.Confidence, ConfidenceAutoLink)
	assert.Equal(t, "anonymous_grading", res.OptionID)
}

func TestMatchCommunityMention_NoOverlapFallsBackToGeneral(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Anonymous Grading"})
	require.NoError(t, err)

	res, err := c.MatchCommunityMention(ctx, "reddit:2", "completely unrelated topic here", "nothing matches", canon.MentionDiscusses)
	require.NoError(t, err)
	assert.Less(t, res.Confidence, ConfidenceSuggest)
}

func TestMatchCommunityMention_PersistsConfidenceAndNeedsTriage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Anonymous Grading Workflow"})
	require.NoError(t, err)

	// "Anonymous Grading" overlaps 2 of the option's 3 name tokens: a
	// 0.67 score lands in the 0.5-0.8 suggest band.
	_, err = c.MatchCommunityMention(ctx, "reddit:3", "Anonymous Grading seems broken today", "", canon.MentionDiscusses)
	require.NoError(t, err)

	refs, err := s.ListFeatureRefsByFeature(ctx, "assignments")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "reddit:3", refs[0].ContentID)
	assert.True(t, refs[0].NeedsTriage)
	assert.GreaterOrEqual(t, refs[0].Confidence, ConfidenceSuggest)
	assert.Less(t, refs[0].Confidence, ConfidenceAutoLink)

	triage, err := s.ListRefsNeedingTriage(ctx)
	require.NoError(t, err)
	require.Len(t, triage, 1)
	assert.Equal(t, "reddit:3", triage[0].ContentID)
}

func TestMatchCommunityMention_GeneralFallbackNotFlaggedForTriage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := New(s, nil)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Anonymous Grading"})
	require.NoError(t, err)

	_, err = c.MatchCommunityMention(ctx, "reddit:4", "completely unrelated topic here", "nothing matches", canon.MentionDiscusses)
	require.NoError(t, err)

	refs, err := s.ListFeatureRefsByFeature(ctx, GeneralFeatureID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.False(t, refs[0].NeedsTriage)

	triage, err := s.ListRefsNeedingTriage(ctx)
	require.NoError(t, err)
	assert.Empty(t, triage)
}

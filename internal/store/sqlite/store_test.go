package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertFeature_IdempotentAndPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	f1, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	require.NotNil(t, f1)

	f2, err := s.UpsertFeature(ctx, "assignments", "Assignments Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Assignments Renamed", f2.Name)
	assert.Equal(t, f1.CreatedAt.Unix(), f2.CreatedAt.Unix())
}

func TestUpsertOption_StatusOnlyAdvances(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)

	opt, err := s.UpsertOption(ctx, canon.FeatureOption{
		FeatureID:     "assignments",
		CanonicalName: "Anonymous Grading",
		Status:        canon.StatusReleased,
	})
	require.NoError(t, err)
	assert.Equal(t, canon.StatusReleased, opt.Status)
	assert.Equal(t, "anonymous_grading", opt.OptionID)

	// A later write claiming "pending" must not regress a released option.
	regressed, err := s.UpsertOption(ctx, canon.FeatureOption{
		FeatureID:     "assignments",
		CanonicalName: "Anonymous Grading",
		Status:        canon.StatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, canon.StatusReleased, regressed.Status)

	firstSeen := opt.FirstSeen
	assert.Equal(t, firstSeen.Unix(), regressed.FirstSeen.Unix())
}

func TestUpsertOption_DeprecatedAlwaysReachable(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)

	_, err = s.UpsertOption(ctx, canon.FeatureOption{
		FeatureID:     "assignments",
		CanonicalName: "Old Gradebook",
		Status:        canon.StatusPreview,
	})
	require.NoError(t, err)

	dep, err := s.UpsertOption(ctx, canon.FeatureOption{
		FeatureID:     "assignments",
		CanonicalName: "Old Gradebook",
		Status:        canon.StatusDeprecated,
	})
	require.NoError(t, err)
	assert.Equal(t, canon.StatusDeprecated, dep.Status)
}

func TestUpsertSetting_ScopedByFeature(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertFeature(ctx, "grades", "Grades")
	require.NoError(t, err)

	st1, err := s.UpsertSetting(ctx, canon.FeatureSetting{FeatureID: "assignments", Title: "Late Policy"})
	require.NoError(t, err)
	st2, err := s.UpsertSetting(ctx, canon.FeatureSetting{FeatureID: "grades", Title: "Late Policy"})
	require.NoError(t, err)

	assert.Equal(t, st1.SettingID, st2.SettingID)
	assert.NotEqual(t, st1.FeatureID, st2.FeatureID)
}

func TestInsertAnnouncement_RejectsBothOrNeitherTarget(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.InsertAnnouncement(ctx, canon.FeatureAnnouncement{ContentID: "c1", AnchorID: "a1"})
	assert.Error(t, err)

	_, err = s.InsertAnnouncement(ctx, canon.FeatureAnnouncement{
		ContentID: "c1", AnchorID: "a1", OptionID: "opt1", SettingID: "set1",
	})
	assert.Error(t, err)
}

func TestInsertAnnouncement_DuplicateAnchorIsRejected(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	a := canon.FeatureAnnouncement{
		ContentID:   "release-2026-01",
		AnchorID:    "anonymous-grading",
		OptionID:    "anonymous_grading",
		FeatureID:   "assignments",
		AnnouncedAt: time.Now(),
	}
	_, err := s.InsertAnnouncement(ctx, a)
	require.NoError(t, err)

	_, err = s.InsertAnnouncement(ctx, a)
	require.Error(t, err)
	assert.ErrorIs(t, err, canon.ErrDuplicateAnnouncement)
}

func TestCountAnnouncements_DistinguishesOptionFromSetting(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.InsertAnnouncement(ctx, canon.FeatureAnnouncement{
		ContentID: "c1", AnchorID: "a1", OptionID: "opt1", FeatureID: "assignments", AnnouncedAt: time.Now(),
	})
	require.NoError(t, err)

	n, err := s.CountAnnouncements(ctx, "opt1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountAnnouncements(ctx, "", "set1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpsertContentItem_PreservesFirstPosted(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	first := time.Now().Add(-48 * time.Hour).UTC()
	item := canon.ContentItem{
		SourceID:      "reddit:abc123",
		URL:           "https://reddit.com/r/instructuredesign/abc123",
		Title:         "Anonymous grading finally works",
		ContentType:   canon.ContentReddit,
		FirstPosted:   first,
		LastCheckedAt: time.Now().UTC(),
		ScrapedDate:   time.Now().UTC(),
	}
	_, err := s.UpsertContentItem(ctx, item)
	require.NoError(t, err)

	item.FirstPosted = time.Now().UTC() // a re-scrape must not move this forward
	item.CommentCount = 5
	got, err := s.UpsertContentItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, first.Unix(), got.FirstPosted.Unix())
	assert.Equal(t, 5, got.CommentCount)
}

func TestUpsertFeatureRef_RequiresAtLeastOneTarget(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	err := s.UpsertFeatureRef(ctx, canon.ContentFeatureRef{ContentID: "c1", MentionType: canon.MentionDiscusses})
	assert.Error(t, err)

	err = s.UpsertFeatureRef(ctx, canon.ContentFeatureRef{ContentID: "c1", FeatureID: "assignments", MentionType: canon.MentionDiscusses})
	assert.NoError(t, err)
}

func TestDiscussionTracking_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	got, err := s.GetDiscussionTracking(ctx, "reddit:abc123")
	require.NoError(t, err)
	assert.Nil(t, got)

	track := canon.DiscussionTracking{
		SourceID:      "reddit:abc123",
		CommentCount:  3,
		LastCommentAt: time.Now().UTC(),
		LastEmittedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertDiscussionTracking(ctx, track))

	got, err = s.GetDiscussionTracking(ctx, "reddit:abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.CommentCount)
}

func TestIsFirstRunForType(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	first, err := s.IsFirstRunForType(ctx, canon.ContentQuestion)
	require.NoError(t, err)
	assert.True(t, first)

	_, err = s.UpsertContentItem(ctx, canon.ContentItem{
		SourceID: "q1", ContentType: canon.ContentQuestion,
		FirstPosted: time.Now().UTC(), LastCheckedAt: time.Now().UTC(), ScrapedDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	first, err = s.IsFirstRunForType(ctx, canon.ContentQuestion)
	require.NoError(t, err)
	assert.False(t, first)
}

func TestEmittedGuids(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	was, err := s.WasEmitted(ctx, "guid-1")
	require.NoError(t, err)
	assert.False(t, was)

	require.NoError(t, s.MarkEmitted(ctx, "guid-1", time.Now().UTC()))

	was, err = s.WasEmitted(ctx, "guid-1")
	require.NoError(t, err)
	assert.True(t, was)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	boom := assert.AnError
	err := s.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.UpsertFeature(ctx, "grades", "Grades"); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)

	got, err := s.GetFeature(ctx, "grades")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	err := s.WithTx(ctx, func(tx store.Store) error {
		_, err := tx.UpsertFeature(ctx, "grades", "Grades")
		return err
	})
	require.NoError(t, err)

	f, err := s.GetFeature(ctx, "grades")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Grades", f.Name)
}

func TestGetContentItem_ReturnsNilWhenAbsent(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	got, err := s.GetContentItem(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetContentItem_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.UpsertContentItem(ctx, canon.ContentItem{
		SourceID:    "reddit_1",
		URL:         "https://reddit.com/r/canvas/1",
		Title:       "Hello",
		ContentType: canon.ContentReddit,
		Summary:     "a post",
	})
	require.NoError(t, err)

	got, err := s.GetContentItem(ctx, "reddit_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hello", got.Title)
}

func TestListFeatureRefsByFeature_AndListRefsNeedingTriage(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.UpsertFeatureRef(ctx, canon.ContentFeatureRef{
		ContentID: "c1", FeatureID: "assignments", MentionType: canon.MentionDiscusses,
		Confidence: 0.6, NeedsTriage: true,
	}))
	require.NoError(t, s.UpsertFeatureRef(ctx, canon.ContentFeatureRef{
		ContentID: "c2", FeatureID: "assignments", MentionType: canon.MentionDiscusses,
		Confidence: 0.9, NeedsTriage: false,
	}))

	refs, err := s.ListFeatureRefsByFeature(ctx, "assignments")
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	triage, err := s.ListRefsNeedingTriage(ctx)
	require.NoError(t, err)
	require.Len(t, triage, 1)
	assert.Equal(t, "c1", triage[0].ContentID)
}

func TestReassignFeatureRef_OverwritesPriorRefAndClearsTriage(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.UpsertFeatureRef(ctx, canon.ContentFeatureRef{
		ContentID: "c1", FeatureID: "general", MentionType: canon.MentionDiscusses,
		Confidence: 0.3, NeedsTriage: false,
	}))

	require.NoError(t, s.ReassignFeatureRef(ctx, "c1", "assignments", "document_processor", ""))

	refs, err := s.ListFeatureRefsByFeature(ctx, "assignments")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "document_processor", refs[0].OptionID)
	assert.False(t, refs[0].NeedsTriage)
	assert.Equal(t, float64(1), refs[0].Confidence)

	general, err := s.ListFeatureRefsByFeature(ctx, "general")
	require.NoError(t, err)
	assert.Empty(t, general)
}

func TestGetOptionGetSettingGetFeature(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Document Processor"})
	require.NoError(t, err)
	_, err = s.UpsertSetting(ctx, canon.FeatureSetting{FeatureID: "assignments", Title: "Some Setting"})
	require.NoError(t, err)

	f, err := s.GetFeature(ctx, "assignments")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Assignments", f.Name)

	opt, err := s.GetOption(ctx, "document_processor")
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, "Document Processor", opt.CanonicalName)

	setting, err := s.GetSetting(ctx, "some_setting", "assignments")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "Some Setting", setting.Title)

	missingFeature, err := s.GetFeature(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, missingFeature)
}

func TestUpdateOptionEnrichment_PersistsFields(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Document Processor"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateOptionEnrichment(ctx, "document_processor", "desc", "meta", "Not yet available."))

	opt, err := s.GetOption(ctx, "document_processor")
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, "desc", opt.Description)
	assert.Equal(t, "meta", opt.MetaSummary)
	assert.Equal(t, "Not yet available.", opt.ImplementationStatus)
}

func TestUpdateSettingEnrichment_PersistsFields(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertSetting(ctx, canon.FeatureSetting{FeatureID: "assignments", Title: "Some Setting"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateSettingEnrichment(ctx, "some_setting", "assignments", "desc", "meta", "Released."))

	setting, err := s.GetSetting(ctx, "some_setting", "assignments")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "desc", setting.Description)
}

func TestListOptionsMissingEnrichment_OnlyListsEmptyDescription(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Document Processor"})
	require.NoError(t, err)
	_, err = s.UpsertOption(ctx, canon.FeatureOption{FeatureID: "assignments", CanonicalName: "Already Described"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateOptionEnrichment(ctx, "already_described", "desc", "meta", "status"))

	missing, err := s.ListOptionsMissingEnrichment(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "document_processor", missing[0].OptionID)
}

func TestListSettingsMissingEnrichment_OnlyListsEmptyDescription(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.UpsertFeature(ctx, "assignments", "Assignments")
	require.NoError(t, err)
	_, err = s.UpsertSetting(ctx, canon.FeatureSetting{FeatureID: "assignments", Title: "Missing Desc"})
	require.NoError(t, err)
	_, err = s.UpsertSetting(ctx, canon.FeatureSetting{FeatureID: "assignments", Title: "Has Desc"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateSettingEnrichment(ctx, "has_desc", "assignments", "desc", "meta", "status"))

	missing, err := s.ListSettingsMissingEnrichment(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "Missing Desc", missing[0].Title)
}

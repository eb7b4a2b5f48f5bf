// Package store defines the canonical store contract (C1): a persistent,
// single-writer transactional store that the classifier, discussion
// tracker, first-run policy, and feed assembler all read and write
// through. Concrete backends (internal/store/sqlite) implement this
// interface; callers depend only on Store.
package store

import (
	"context"
	"time"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
)

// Store is the canonical store's public contract, per spec.md §4.1.
// Implementations must enforce, at write time:
//   - status transitions only advance (canon.AdvancesFrom)
//   - an announcement references an option xor a setting (whether that
//     option or setting row exists is not checked)
//   - refs satisfy the at-least-one-FK constraint
type Store interface {
	// UpsertFeature is idempotent; CreatedAt is set only on first write.
	UpsertFeature(ctx context.Context, featureID, name string) (*canon.Feature, error)

	// UpsertOption's identity is Slugify(canonicalName). LastSeen advances
	// on every call; lifecycle dates advance only when the transition is
	// forward per canon.AdvancesFrom.
	UpsertOption(ctx context.Context, opt canon.FeatureOption) (*canon.FeatureOption, error)

	// UpsertSetting's identity is Slugify(h4Title), scoped to featureID.
	UpsertSetting(ctx context.Context, s canon.FeatureSetting) (*canon.FeatureSetting, error)

	// InsertAnnouncement is immutable. It returns an error wrapping
	// canon.ErrDuplicateAnnouncement if (ContentID, AnchorID) already
	// exists; callers treat that as a benign skip.
	InsertAnnouncement(ctx context.Context, a canon.FeatureAnnouncement) (*canon.FeatureAnnouncement, error)

	// CountAnnouncements returns how many announcement rows reference the
	// given option or setting — used by the classifier's NEW/UPDATE
	// verdict (exactly one existing row means NEW).
	CountAnnouncements(ctx context.Context, optionID, settingID string) (int, error)

	// UpsertContentItem preserves the first FirstPosted it ever saw and
	// refreshes engagement/LastCheckedAt/LastCommentAt. Repeated calls
	// with identical inputs are a no-op (spec.md invariant #3).
	UpsertContentItem(ctx context.Context, item canon.ContentItem) (*canon.ContentItem, error)

	// InsertComment is additive; old positions are retained.
	InsertComment(ctx context.Context, c canon.ContentComment) error

	// UpsertFeatureRef enforces the (content_id, feature_id, option_id,
	// setting_id) uniqueness constraint from spec.md §3.
	UpsertFeatureRef(ctx context.Context, ref canon.ContentFeatureRef) error

	// InsertUpcomingChange records one parsed upcoming-change entry.
	InsertUpcomingChange(ctx context.Context, c canon.UpcomingChange) error

	// GetDiscussionTracking returns nil, nil when no row exists yet.
	GetDiscussionTracking(ctx context.Context, sourceID string) (*canon.DiscussionTracking, error)

	// UpsertDiscussionTracking overwrites the tracked state for sourceID.
	UpsertDiscussionTracking(ctx context.Context, t canon.DiscussionTracking) error

	// IsFirstRunForType reports whether zero rows of contentType exist.
	IsFirstRunForType(ctx context.Context, contentType canon.ContentType) (bool, error)

	// WasEmitted reports whether guid was recorded as emitted in a prior
	// FeedRun, for the feed assembler's cross-run dedup rule.
	WasEmitted(ctx context.Context, guid string) (bool, error)

	// MarkEmitted records guid as emitted as of the given FeedRun so
	// future runs can apply the cross-run dedup rule.
	MarkEmitted(ctx context.Context, guid string, at time.Time) error

	// RecordFeedRun persists a completed run's payload and item count.
	RecordFeedRun(ctx context.Context, run canon.FeedRun) error

	// ListCanonicalTargets returns every known feature, option, and
	// setting as a flat list of linkable targets, for the classifier's
	// community-mention token-overlap matcher (spec.md §4.3).
	ListCanonicalTargets(ctx context.Context) ([]CanonicalTarget, error)

	// GetContentItem looks up one content item by source ID, for the
	// `general show`/`regenerate` CLI surface. Returns nil, nil if absent.
	GetContentItem(ctx context.Context, sourceID string) (*canon.ContentItem, error)

	// ListFeatureRefsByFeature lists every ref pointing at featureID —
	// used by `general list`/`general triage` to enumerate everything
	// currently bucketed under the synthetic "general" feature, and by
	// `general show` to inspect one content item's classification.
	ListFeatureRefsByFeature(ctx context.Context, featureID string) ([]canon.ContentFeatureRef, error)

	// ListRefsNeedingTriage lists every ref flagged NeedsTriage (spec.md
	// §4.3's 0.5-0.8 "suggest" confidence band), for `general triage`.
	ListRefsNeedingTriage(ctx context.Context) ([]canon.ContentFeatureRef, error)

	// ReassignFeatureRef overwrites contentID's prior ref (if any) with a
	// manually-confirmed target and clears NeedsTriage, for `general
	// assign`.
	ReassignFeatureRef(ctx context.Context, contentID, featureID, optionID, settingID string) error

	// GetOption and GetSetting look up one node by ID, for `regenerate`.
	GetOption(ctx context.Context, optionID string) (*canon.FeatureOption, error)
	GetSetting(ctx context.Context, settingID, featureID string) (*canon.FeatureSetting, error)
	GetFeature(ctx context.Context, featureID string) (*canon.Feature, error)

	// UpdateOptionEnrichment and UpdateSettingEnrichment persist
	// regenerated description/meta_summary/implementation_status text
	// without touching lifecycle fields, for `regenerate`.
	UpdateOptionEnrichment(ctx context.Context, optionID, description, metaSummary, implementationStatus string) error
	UpdateSettingEnrichment(ctx context.Context, settingID, featureID, description, metaSummary, implementationStatus string) error

	// ListOptionsMissingEnrichment and ListSettingsMissingEnrichment list
	// nodes with an empty description, for `regenerate options --missing`.
	ListOptionsMissingEnrichment(ctx context.Context) ([]canon.FeatureOption, error)
	ListSettingsMissingEnrichment(ctx context.Context) ([]canon.FeatureSetting, error)

	// WithTx runs fn inside one transaction; a page's classifier writes
	// commit together or the page is rolled back (spec.md §4.8).
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Close releases the underlying connection/lock.
	Close() error
}

// CanonicalTarget is one linkable node in the canonical graph — a
// feature, an option, or a setting — reduced to the fields the
// community-mention matcher needs to score token overlap against a
// post's title/body.
type CanonicalTarget struct {
	FeatureID string
	OptionID  string
	SettingID string
	Name      string
}

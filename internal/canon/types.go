// Package canon defines the canonical data model shared by every stage of
// the change-detection pipeline: the HTML parser, the classifier, the
// discussion tracker, the enrichment gateway, and the feed assembler all
// exchange these typed records rather than passing attribute bags around.
package canon

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FeatureStatus is the lifecycle state of a Feature.
type FeatureStatus string

const (
	FeatureActive     FeatureStatus = "active"
	FeatureDeprecated FeatureStatus = "deprecated"
)

// OptionStatus is the lifecycle state of a FeatureOption or FeatureSetting.
// Status only advances left to right; Deprecated is terminal.
type OptionStatus string

const (
	StatusPending        OptionStatus = "pending"
	StatusPreview        OptionStatus = "preview"
	StatusOptional       OptionStatus = "optional"
	StatusDefaultOptional OptionStatus = "default_optional"
	StatusReleased       OptionStatus = "released"
	StatusDeprecated     OptionStatus = "deprecated"
)

// statusRank gives each status its position in the monotonic lifecycle.
// Deprecated is reachable from any state and never left.
var statusRank = map[OptionStatus]int{
	StatusPending:        0,
	StatusPreview:        1,
	StatusOptional:       2,
	StatusDefaultOptional: 3,
	StatusReleased:       4,
	StatusDeprecated:     5,
}

// AdvancesFrom reports whether transitioning from `from` to `to` is a
// forward (or same) move in the lifecycle. Deprecated is always a legal
// target; otherwise the rank of `to` must be >= the rank of `from`.
func AdvancesFrom(from, to OptionStatus) bool {
	if to == StatusDeprecated {
		return true
	}
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	if !ok1 || !ok2 {
		return false
	}
	return tr >= fr
}

// ContentType enumerates the kinds of ContentItem the engine ingests.
type ContentType string

const (
	ContentReleaseNote ContentType = "release_note"
	ContentDeployNote  ContentType = "deploy_note"
	ContentChangelog   ContentType = "changelog"
	ContentBlog        ContentType = "blog"
	ContentQuestion    ContentType = "question"
	ContentReddit      ContentType = "reddit"
	ContentStatus      ContentType = "status"
)

// MentionType classifies a ContentFeatureRef's relationship to its target.
type MentionType string

const (
	MentionAnnounces MentionType = "announces"
	MentionDiscusses MentionType = "discusses"
	MentionQuestions MentionType = "questions"
	MentionFeedback  MentionType = "feedback"
)

// SectionKind is a parsed H2 heading's recognized category.
type SectionKind string

const (
	SectionNewFeatures    SectionKind = "New Features"
	SectionUpdatedFeatures SectionKind = "Updated Features"
	SectionPlatform       SectionKind = "Platform/Integration"
	SectionOtherUpdates   SectionKind = "Other Updates"
	SectionUpcoming       SectionKind = "Upcoming Canvas Changes"
	SectionOther          SectionKind = "other"
)

// Verdict is the NEW/UPDATE/SKIP badge a classifier or tracker assigns an
// emitted item.
type Verdict string

const (
	VerdictNew    Verdict = "NEW"
	VerdictUpdate Verdict = "UPDATE"
	VerdictSkip   Verdict = "SKIP"
)

// Feature is one Canvas top-level area (~45 exist). Created lazily on
// first reference; never deleted.
type Feature struct {
	FeatureID       string
	Name            string
	Status          FeatureStatus
	Description     string
	LLMGeneratedAt  *time.Time
	CreatedAt       time.Time
}

// FeatureOption is an admin-toggleable flag under a Feature. option_id is
// always slugify(CanonicalName); updates may refine fields but never
// re-key the row.
type FeatureOption struct {
	OptionID             string
	FeatureID            string
	CanonicalName        string
	Status               OptionStatus
	BetaDate             *time.Time
	ProductionDate       *time.Time
	DeprecationDate      *time.Time
	Description          string
	MetaSummary          string
	ImplementationStatus string
	UserGroupURL         string
	FirstSeen            time.Time
	LastSeen             time.Time
}

// FeatureSetting is a non-toggle behavior change, used when an
// announcement's "Feature Option to Enable" cell is absent, empty, or
// "N/A". setting_id is slugify(h4_title), scoped to its feature.
type FeatureSetting struct {
	SettingID            string
	FeatureID            string
	Title                string
	Status               OptionStatus
	BetaDate             *time.Time
	ProductionDate       *time.Time
	DeprecationDate      *time.Time
	Description          string
	MetaSummary          string
	ImplementationStatus string
	UserGroupURL         string
	FirstSeen            time.Time
	LastSeen             time.Time
}

// ConfigSnapshot captures the per-announcement configuration cells parsed
// from the table following an H4 entry.
type ConfigSnapshot struct {
	EnableLocationAccount string
	EnableLocationCourse  string
	SubaccountConfig      *bool
	Permissions           string
	AffectedAreas         []string
	AffectsUI             *bool
}

// FeatureAnnouncement is one immutable row per (release/deploy page,
// option-or-setting). Exactly one of OptionID/SettingID is non-empty.
type FeatureAnnouncement struct {
	ID            string
	FeatureID     string
	OptionID      string
	SettingID     string
	ContentID     string
	H4Title       string
	AnchorID      string
	Section       SectionKind
	Category      string
	RawContent    string
	Description   string
	Implications  string
	Config        ConfigSnapshot
	AddedDate     *time.Time
	AnnouncedAt   time.Time
}

// ContentItem is any externally sourced record. SourceID is globally
// unique; re-ingestion upserts, it never inserts a duplicate row.
type ContentItem struct {
	SourceID       string
	URL            string
	Title          string
	ContentType    ContentType
	Summary        string
	EngagementScore float64
	CommentCount   int
	FirstPosted    time.Time
	LastEdited     *time.Time
	LastCommentAt  *time.Time
	LastCheckedAt  time.Time
	ScrapedDate    time.Time
}

// ContentComment is a PII-redacted comment belonging to a ContentItem.
// There is deliberately no author field (anonymity principle).
type ContentComment struct {
	ContentID   string
	CommentText string
	PostedAt    time.Time
	Position    int
}

// ContentFeatureRef many-to-many links a ContentItem to a feature,
// option, or setting. At least one of FeatureID/OptionID/SettingID must
// be non-empty.
type ContentFeatureRef struct {
	ContentID   string
	FeatureID   string
	OptionID    string
	SettingID   string
	MentionType MentionType

	// Confidence and NeedsTriage are populated by the community-mention
	// token-overlap matcher (spec.md §4.3); a direct release/deploy-note
	// announcement ref always carries Confidence 1 and NeedsTriage false.
	Confidence  float64
	NeedsTriage bool
}

// Key returns the uniqueness key spec.md mandates:
// (content_id, coalesce(feature_id,''), coalesce(option_id,''), coalesce(setting_id,'')).
func (r ContentFeatureRef) Key() [4]string {
	return [4]string{r.ContentID, r.FeatureID, r.OptionID, r.SettingID}
}

// HasTarget reports whether at least one FK is populated, as required by
// spec.md's invariant.
func (r ContentFeatureRef) HasTarget() bool {
	return r.FeatureID != "" || r.OptionID != "" || r.SettingID != ""
}

// UpcomingChange is parsed from a release note's "Upcoming Canvas
// Changes" block. ChangeDate is nil when the date could not be parsed —
// that degradation is by design (spec.md §9 Open Question (b)).
type UpcomingChange struct {
	ContentID   string
	ChangeDate  *time.Time
	Description string
}

// DiscussionTracking is the last-observed state of one community post,
// used to decide NEW/UPDATE/SKIP on each run.
type DiscussionTracking struct {
	SourceID      string
	CommentCount  int
	LastCommentAt time.Time
	LastEmittedAt time.Time
}

// FeedRun records one completed batch invocation.
type FeedRun struct {
	FeedDate    string
	ItemCount   int
	Payload     []byte
	GeneratedAt time.Time
}

var (
	slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	slugEdges    = regexp.MustCompile(`^_+|_+$`)
	caseFolder   = cases.Lower(language.English)
)

// Slugify derives a deterministic identifier from display text: fold to
// lowercase, replace every run of non-alphanumeric characters with a
// single underscore, then trim leading/trailing underscores. It is the
// sole mechanism linking parsed HTML text to canonical graph identity
// (spec.md §9), so it must never change behavior for previously-seen
// input.
func Slugify(s string) string {
	folded := caseFolder.String(strings.TrimSpace(s))
	slug := slugNonAlnum.ReplaceAllString(folded, "_")
	return slugEdges.ReplaceAllString(slug, "")
}

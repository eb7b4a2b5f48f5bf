// Package classifier implements C3: it turns parsed HTML entries into
// canonical graph writes — resolving feature identity, deciding option
// vs setting, writing immutable announcements and refs, advancing
// lifecycle dates on heuristic phrase matches, and producing the
// NEW/UPDATE verdict the feed assembler badges each item with.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/config"
	"github.com/titulartarantula/canvas-rss-sub001/internal/htmlparser"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

// GeneralFeatureID is the synthetic feature community mentions link to
// when the token-overlap matcher's confidence falls below the
// low-confidence threshold (spec.md §4.3).
const GeneralFeatureID = "general"

// Confidence thresholds for the community-mention matcher (spec.md §4.3).
const (
	ConfidenceAutoLink = 0.8
	ConfidenceSuggest  = 0.5
)

// Result is one classified H4 entry's outcome: the graph nodes it was
// linked into and the NEW/UPDATE verdict for the feed assembler.
type Result struct {
	ContentID  string
	FeatureID  string
	OptionID   string
	SettingID  string
	AnchorID   string
	Category   string
	H4Title    string
	RawContent string
	Verdict    canon.Verdict
	Announced  time.Time
}

// Classifier is C3. It holds the store handle entries are written
// through and the optional static classification overrides (spec.md
// §4.2 "Classification overrides").
type Classifier struct {
	store     store.Store
	overrides *config.OverrideSet
}

// New builds a Classifier. overrides may be nil (no overrides loaded).
func New(s store.Store, overrides *config.OverrideSet) *Classifier {
	return &Classifier{store: s, overrides: overrides}
}

// ClassifyReleaseNotePage walks every section of a parsed release-note
// page, classifying its entries and recording its upcoming-change
// items. Individual entry failures are logged and skipped per
// spec.md §7's ClassificationError semantics; the page itself never
// fails here (ParseError already would have surfaced during C2).
func (c *Classifier) ClassifyReleaseNotePage(ctx context.Context, contentID string, page *htmlparser.ReleaseNotePage) ([]Result, error) {
	var results []Result
	for _, section := range page.Sections {
		for _, uc := range section.UpcomingChanges {
			uc.ContentID = contentID
			if err := c.store.InsertUpcomingChange(ctx, uc); err != nil {
				log.Printf("classifier: insert upcoming change for %s: %v", contentID, err)
			}
		}
		for _, entry := range section.Entries {
			res, err := c.classifyEntry(ctx, contentID, section.CategoryH3, section.Kind, entry, page.PageDate)
			if err != nil {
				log.Printf("classifier: skipping entry anchor=%q: %v", entry.AnchorID, err)
				continue
			}
			results = append(results, *res)
		}
	}
	return results, nil
}

// ClassifyDeployNotePage classifies the flat entry list of a deploy
// note. Deploy notes carry no H2 section kind, so every entry is
// tagged canon.SectionOther, and every entry takes its feature identity
// from the categoryH3 argument the caller supplies; the parsed deploy
// page keeps no per-entry H3 category. An empty categoryH3 makes every
// entry fail classification, and each is logged and skipped.
func (c *Classifier) ClassifyDeployNotePage(ctx context.Context, contentID string, page *htmlparser.DeployNotePage, categoryH3 string) ([]Result, error) {
	var results []Result
	for _, entry := range page.Changes {
		res, err := c.classifyEntry(ctx, contentID, categoryH3, canon.SectionOther, entry, page.PageDate)
		if err != nil {
			log.Printf("classifier: skipping deploy entry anchor=%q: %v", entry.AnchorID, err)
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

func (c *Classifier) classifyEntry(ctx context.Context, contentID, categoryH3 string, kind canon.SectionKind, e htmlparser.Entry, pageDate time.Time) (*Result, error) {
	featureID := canon.Slugify(categoryH3)
	if featureID == "" {
		return nil, canon.WrapClassification("resolve_feature", fmt.Errorf("no H3 category for anchor %q", e.AnchorID))
	}
	if _, err := c.store.UpsertFeature(ctx, featureID, categoryH3); err != nil {
		return nil, err
	}

	isSetting, canonicalName := classifyOptionVsSetting(e)
	if o, ok := c.overrides.Lookup(e.AnchorID, e.H4Title); ok {
		isSetting = o.ClassifyAs == "setting"
		if o.CanonicalName != "" {
			canonicalName = o.CanonicalName
		}
	}

	status, beta, prod, dep := deriveLifecycle(e.H4Title+" "+e.RawContent, pageDate)

	res := &Result{
		ContentID: contentID, FeatureID: featureID, AnchorID: e.AnchorID,
		Category: categoryH3, H4Title: e.H4Title, RawContent: e.RawContent,
		Announced: pageDate,
	}

	if isSetting {
		st, err := c.store.UpsertSetting(ctx, canon.FeatureSetting{
			FeatureID: featureID, Title: e.H4Title, Status: status,
			BetaDate: beta, ProductionDate: prod, DeprecationDate: dep,
		})
		if err != nil {
			return nil, err
		}
		if st.Status != status {
			log.Printf("classifier: ignoring status regression for setting %s: stored %s, announced %s", st.SettingID, st.Status, status)
		}
		res.SettingID = st.SettingID
	} else {
		opt, err := c.store.UpsertOption(ctx, canon.FeatureOption{
			FeatureID: featureID, CanonicalName: canonicalName, Status: status,
			BetaDate: beta, ProductionDate: prod, DeprecationDate: dep,
		})
		if err != nil {
			return nil, err
		}
		if opt.Status != status {
			log.Printf("classifier: ignoring status regression for option %s: stored %s, announced %s", opt.OptionID, opt.Status, status)
		}
		res.OptionID = opt.OptionID
	}

	announcement := canon.FeatureAnnouncement{
		ID:          uuid.NewString(),
		FeatureID:   featureID,
		OptionID:    res.OptionID,
		SettingID:   res.SettingID,
		ContentID:   contentID,
		H4Title:     e.H4Title,
		AnchorID:    e.AnchorID,
		Section:     kind,
		Category:    categoryH3,
		RawContent:  e.RawContent,
		Config:      configSnapshotFrom(e.Table),
		AddedDate:   e.AddedDate,
		AnnouncedAt: pageDate,
	}
	if _, err := c.store.InsertAnnouncement(ctx, announcement); err != nil {
		if errors.Is(err, canon.ErrDuplicateAnnouncement) {
			return nil, err // benign skip; caller logs and continues
		}
		return nil, err
	}

	if err := c.store.UpsertFeatureRef(ctx, canon.ContentFeatureRef{
		ContentID: contentID, FeatureID: featureID, OptionID: res.OptionID, SettingID: res.SettingID,
		MentionType: canon.MentionAnnounces, Confidence: 1,
	}); err != nil {
		return nil, err
	}

	count, err := c.store.CountAnnouncements(ctx, res.OptionID, res.SettingID)
	if err != nil {
		return nil, err
	}
	if count == 1 {
		res.Verdict = canon.VerdictNew
	} else {
		res.Verdict = canon.VerdictUpdate
	}
	return res, nil
}

// classifyOptionVsSetting applies spec.md §4.2's table-cell rule: the
// "Feature Option to Enable"/"Feature Option Name to Enable" cell's
// first-paragraph text decides option vs setting.
func classifyOptionVsSetting(e htmlparser.Entry) (isSetting bool, canonicalName string) {
	value := strings.TrimSpace(e.Table.FeatureOptionValue)
	if value == "" || strings.EqualFold(value, "N/A") {
		return true, ""
	}
	return false, value
}

func configSnapshotFrom(t htmlparser.TableFields) canon.ConfigSnapshot {
	return canon.ConfigSnapshot{
		EnableLocationAccount: t.EnableLocationAccount,
		EnableLocationCourse:  t.EnableLocationCourse,
		SubaccountConfig:      t.SubaccountConfig,
		Permissions:           t.Permissions,
		AffectedAreas:         t.AffectedAreas,
		AffectsUI:             t.AffectsUI,
	}
}

// deriveLifecycle applies spec.md §4.3 rule 5's phrase heuristics:
// "available in beta"/"Beta" sets beta_date; a production-availability
// phrase sets production_date; an explicit "deprecated" marker sets
// deprecation_date. Status reflects the furthest stage implied by the
// text; dates are only proposed here — the store only ever applies
// them going forward (canon.AdvancesFrom).
func deriveLifecycle(text string, pageDate time.Time) (status canon.OptionStatus, beta, prod, dep *time.Time) {
	lower := strings.ToLower(text)
	status = canon.StatusPending

	switch {
	case strings.Contains(lower, "deprecated"):
		status = canon.StatusDeprecated
		dep = &pageDate
	case strings.Contains(lower, "available in production") || strings.Contains(lower, "generally available"):
		status = canon.StatusReleased
		prod = &pageDate
	case strings.Contains(lower, "available in beta") || strings.Contains(lower, "beta"):
		status = canon.StatusPreview
		beta = &pageDate
	}
	return
}

// Package sqlite implements the canonical store (C1) on top of
// modernc.org/sqlite, a pure-Go (no cgo) SQLite driver. A gofrs/flock
// advisory lock enforces the single-writer boundary from spec.md §5
// across processes, guarding the database file the same way an
// append-only log file is guarded against concurrent writers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting every query
// method run identically whether or not it is inside WithTx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store is the sqlite-backed implementation of store.Store.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	exec execer
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the sqlite database at path, applies
// pending migrations, and acquires the cross-process writer lock. The
// lock file is path+".lock".
func Open(path string) (*Store, error) {
	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, canon.WrapStore("open", fmt.Errorf("acquiring store lock: %w", err))
	}
	if !locked {
		return nil, canon.WrapStore("open", errors.New("store is locked by another process"))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = fl.Unlock()
		return nil, canon.WrapStore("open", err)
	}
	db.SetMaxOpenConns(1) // single-writer: avoid SQLITE_BUSY under concurrent fetchers

	s := &Store{db: db, lock: fl, exec: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		_ = fl.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var current int
	row := s.db.QueryRowContext(ctx, `PRAGMA user_version`)
	if err := row.Scan(&current); err != nil {
		return canon.WrapStore("migrate", err)
	}
	if current >= schemaVersion {
		return nil
	}
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return canon.WrapStore("migrate", fmt.Errorf("applying migration: %w", err))
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return canon.WrapStore("migrate", err)
	}
	return nil
}

// Close releases the database connection and the cross-process lock.
func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Unlock()
	if dbErr != nil {
		return canon.WrapStore("close", dbErr)
	}
	if lockErr != nil {
		return canon.WrapStore("close", lockErr)
	}
	return nil
}

// WithTx runs fn against a transaction-scoped Store. Per spec.md §4.8,
// either all of a page's classifier writes commit together or the page
// is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return canon.WrapStore("with_tx", err)
	}
	txStore := &Store{db: s.db, lock: s.lock, exec: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return canon.WrapStore("with_tx", fmt.Errorf("commit: %w", err))
	}
	return nil
}

func nilableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNilableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nilableBool(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

// UpsertFeature is idempotent; CreatedAt is set only on the first write.
func (s *Store) UpsertFeature(ctx context.Context, featureID, name string) (*canon.Feature, error) {
	now := time.Now().UTC()
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO features (feature_id, name, status, created_at)
		VALUES (?, ?, 'active', ?)
		ON CONFLICT(feature_id) DO UPDATE SET name = excluded.name
	`, featureID, name, now.Format(time.RFC3339))
	if err != nil {
		return nil, canon.WrapStore("upsert_feature", err)
	}

	row := s.exec.QueryRowContext(ctx, `
		SELECT feature_id, name, status, description, llm_generated_at, created_at
		FROM features WHERE feature_id = ?
	`, featureID)

	var f canon.Feature
	var llmAt, createdAt sql.NullString
	if err := row.Scan(&f.FeatureID, &f.Name, &f.Status, &f.Description, &llmAt, &createdAt); err != nil {
		return nil, canon.WrapStore("upsert_feature", err)
	}
	t, err := parseNilableTime(llmAt)
	if err != nil {
		return nil, canon.WrapStore("upsert_feature", err)
	}
	f.LLMGeneratedAt = t
	if createdAt.Valid {
		f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	}
	return &f, nil
}

// UpsertOption's identity is canon.Slugify(opt.CanonicalName). LastSeen
// advances on every call; lifecycle dates advance only when forward
// (canon.AdvancesFrom) — a backward-looking source correction is logged
// by the caller, never applied here.
func (s *Store) UpsertOption(ctx context.Context, opt canon.FeatureOption) (*canon.FeatureOption, error) {
	optionID := canon.Slugify(opt.CanonicalName)
	now := time.Now().UTC()

	existing, err := s.getOption(ctx, optionID)
	if err != nil {
		return nil, err
	}

	status := opt.Status
	if status == "" {
		status = canon.StatusPending
	}
	firstSeen := now
	betaDate, prodDate, depDate := opt.BetaDate, opt.ProductionDate, opt.DeprecationDate

	if existing != nil {
		firstSeen = existing.FirstSeen
		if !canon.AdvancesFrom(existing.Status, status) {
			status = existing.Status // regression: keep prior status, caller logs the anomaly
			betaDate, prodDate, depDate = existing.BetaDate, existing.ProductionDate, existing.DeprecationDate
		}
		if betaDate == nil {
			betaDate = existing.BetaDate
		}
		if prodDate == nil {
			prodDate = existing.ProductionDate
		}
		if depDate == nil {
			depDate = existing.DeprecationDate
		}
	}

	_, err = s.exec.ExecContext(ctx, `
		INSERT INTO feature_options (
			option_id, feature_id, canonical_name, status, beta_date, production_date,
			deprecation_date, description, meta_summary, implementation_status,
			user_group_url, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(option_id) DO UPDATE SET
			feature_id = excluded.feature_id,
			canonical_name = excluded.canonical_name,
			status = excluded.status,
			beta_date = excluded.beta_date,
			production_date = excluded.production_date,
			deprecation_date = excluded.deprecation_date,
			description = CASE WHEN excluded.description != '' THEN excluded.description ELSE feature_options.description END,
			meta_summary = CASE WHEN excluded.meta_summary != '' THEN excluded.meta_summary ELSE feature_options.meta_summary END,
			implementation_status = CASE WHEN excluded.implementation_status != '' THEN excluded.implementation_status ELSE feature_options.implementation_status END,
			user_group_url = CASE WHEN excluded.user_group_url != '' THEN excluded.user_group_url ELSE feature_options.user_group_url END,
			last_seen = excluded.last_seen
	`, optionID, opt.FeatureID, opt.CanonicalName, status, nilableTime(betaDate), nilableTime(prodDate),
		nilableTime(depDate), opt.Description, opt.MetaSummary, opt.ImplementationStatus,
		opt.UserGroupURL, firstSeen.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, canon.WrapStore("upsert_option", err)
	}
	return s.getOption(ctx, optionID)
}

func (s *Store) getOption(ctx context.Context, optionID string) (*canon.FeatureOption, error) {
	row := s.exec.QueryRowContext(ctx, `
		SELECT option_id, feature_id, canonical_name, status, beta_date, production_date,
			deprecation_date, description, meta_summary, implementation_status,
			user_group_url, first_seen, last_seen
		FROM feature_options WHERE option_id = ?
	`, optionID)

	var o canon.FeatureOption
	var status string
	var beta, prod, dep sql.NullString
	var firstSeen, lastSeen string
	if err := row.Scan(&o.OptionID, &o.FeatureID, &o.CanonicalName, &status, &beta, &prod, &dep,
		&o.Description, &o.MetaSummary, &o.ImplementationStatus, &o.UserGroupURL, &firstSeen, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, canon.WrapStore("get_option", err)
	}
	o.Status = canon.OptionStatus(status)
	var err error
	if o.BetaDate, err = parseNilableTime(beta); err != nil {
		return nil, canon.WrapStore("get_option", err)
	}
	if o.ProductionDate, err = parseNilableTime(prod); err != nil {
		return nil, canon.WrapStore("get_option", err)
	}
	if o.DeprecationDate, err = parseNilableTime(dep); err != nil {
		return nil, canon.WrapStore("get_option", err)
	}
	o.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	o.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	return &o, nil
}

// UpsertSetting's identity is canon.Slugify(s.Title), scoped to FeatureID.
func (s *Store) UpsertSetting(ctx context.Context, setting canon.FeatureSetting) (*canon.FeatureSetting, error) {
	settingID := canon.Slugify(setting.Title)
	now := time.Now().UTC()

	existing, err := s.getSetting(ctx, settingID, setting.FeatureID)
	if err != nil {
		return nil, err
	}

	status := setting.Status
	if status == "" {
		status = canon.StatusPending
	}
	firstSeen := now
	betaDate, prodDate, depDate := setting.BetaDate, setting.ProductionDate, setting.DeprecationDate
	if existing != nil {
		firstSeen = existing.FirstSeen
		if !canon.AdvancesFrom(existing.Status, status) {
			status = existing.Status
			betaDate, prodDate, depDate = existing.BetaDate, existing.ProductionDate, existing.DeprecationDate
		}
		if betaDate == nil {
			betaDate = existing.BetaDate
		}
		if prodDate == nil {
			prodDate = existing.ProductionDate
		}
		if depDate == nil {
			depDate = existing.DeprecationDate
		}
	}

	_, err = s.exec.ExecContext(ctx, `
		INSERT INTO feature_settings (
			setting_id, feature_id, title, status, beta_date, production_date,
			deprecation_date, description, meta_summary, implementation_status,
			user_group_url, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(setting_id, feature_id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			beta_date = excluded.beta_date,
			production_date = excluded.production_date,
			deprecation_date = excluded.deprecation_date,
			description = CASE WHEN excluded.description != '' THEN excluded.description ELSE feature_settings.description END,
			meta_summary = CASE WHEN excluded.meta_summary != '' THEN excluded.meta_summary ELSE feature_settings.meta_summary END,
			implementation_status = CASE WHEN excluded.implementation_status != '' THEN excluded.implementation_status ELSE feature_settings.implementation_status END,
			user_group_url = CASE WHEN excluded.user_group_url != '' THEN excluded.user_group_url ELSE feature_settings.user_group_url END,
			last_seen = excluded.last_seen
	`, settingID, setting.FeatureID, setting.Title, status, nilableTime(betaDate), nilableTime(prodDate),
		nilableTime(depDate), setting.Description, setting.MetaSummary, setting.ImplementationStatus,
		setting.UserGroupURL, firstSeen.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, canon.WrapStore("upsert_setting", err)
	}
	return s.getSetting(ctx, settingID, setting.FeatureID)
}

func (s *Store) getSetting(ctx context.Context, settingID, featureID string) (*canon.FeatureSetting, error) {
	row := s.exec.QueryRowContext(ctx, `
		SELECT setting_id, feature_id, title, status, beta_date, production_date,
			deprecation_date, description, meta_summary, implementation_status,
			user_group_url, first_seen, last_seen
		FROM feature_settings WHERE setting_id = ? AND feature_id = ?
	`, settingID, featureID)

	var st canon.FeatureSetting
	var status string
	var beta, prod, dep sql.NullString
	var firstSeen, lastSeen string
	if err := row.Scan(&st.SettingID, &st.FeatureID, &st.Title, &status, &beta, &prod, &dep,
		&st.Description, &st.MetaSummary, &st.ImplementationStatus, &st.UserGroupURL, &firstSeen, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, canon.WrapStore("get_setting", err)
	}
	st.Status = canon.OptionStatus(status)
	var err error
	if st.BetaDate, err = parseNilableTime(beta); err != nil {
		return nil, canon.WrapStore("get_setting", err)
	}
	if st.ProductionDate, err = parseNilableTime(prod); err != nil {
		return nil, canon.WrapStore("get_setting", err)
	}
	if st.DeprecationDate, err = parseNilableTime(dep); err != nil {
		return nil, canon.WrapStore("get_setting", err)
	}
	st.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	st.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	return &st, nil
}

// InsertAnnouncement enforces the option-xor-setting invariant and the
// (content_id, anchor_id) uniqueness constraint.
func (s *Store) InsertAnnouncement(ctx context.Context, a canon.FeatureAnnouncement) (*canon.FeatureAnnouncement, error) {
	if (a.OptionID == "") == (a.SettingID == "") {
		return nil, canon.WrapClassification("insert_announcement", errors.New("exactly one of option_id/setting_id must be set"))
	}

	var exists int
	row := s.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE content_id = ? AND anchor_id = ?`, a.ContentID, a.AnchorID)
	if err := row.Scan(&exists); err != nil {
		return nil, canon.WrapStore("insert_announcement", err)
	}
	if exists > 0 {
		return nil, canon.WrapStore("insert_announcement", canon.ErrDuplicateAnnouncement)
	}

	if a.ID == "" {
		a.ID = a.ContentID + ":" + a.AnchorID
	}
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO announcements (
			id, feature_id, option_id, setting_id, content_id, h4_title, anchor_id, section,
			category, raw_content, description, implications, enable_location_account,
			enable_location_course, subaccount_config, permissions, affected_areas, affects_ui,
			added_date, announced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.FeatureID, a.OptionID, a.SettingID, a.ContentID, a.H4Title, a.AnchorID, string(a.Section),
		a.Category, a.RawContent, a.Description, a.Implications, a.Config.EnableLocationAccount,
		a.Config.EnableLocationCourse, nilableBool(a.Config.SubaccountConfig), a.Config.Permissions,
		strings.Join(a.Config.AffectedAreas, ","), nilableBool(a.Config.AffectsUI),
		nilableTime(a.AddedDate), a.AnnouncedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, canon.WrapStore("insert_announcement", err)
	}
	return &a, nil
}

// CountAnnouncements counts rows referencing optionID or settingID
// (exactly one of which is expected to be non-empty).
func (s *Store) CountAnnouncements(ctx context.Context, optionID, settingID string) (int, error) {
	var n int
	var row *sql.Row
	if optionID != "" {
		row = s.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE option_id = ?`, optionID)
	} else {
		row = s.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE setting_id = ?`, settingID)
	}
	if err := row.Scan(&n); err != nil {
		return 0, canon.WrapStore("count_announcements", err)
	}
	return n, nil
}

// UpsertContentItem preserves the first FirstPosted and refreshes
// engagement/LastCheckedAt/LastCommentAt. Repeated calls with identical
// inputs are a no-op (spec.md invariant #3): SQLite won't report a
// changed row count, but the resulting row is byte-for-byte the same.
func (s *Store) UpsertContentItem(ctx context.Context, item canon.ContentItem) (*canon.ContentItem, error) {
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO content_items (
			source_id, url, title, content_type, summary, engagement_score, comment_count,
			first_posted, last_edited, last_comment_at, last_checked_at, scraped_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			summary = CASE WHEN excluded.summary != '' THEN excluded.summary ELSE content_items.summary END,
			engagement_score = excluded.engagement_score,
			comment_count = excluded.comment_count,
			last_edited = excluded.last_edited,
			last_comment_at = excluded.last_comment_at,
			last_checked_at = excluded.last_checked_at,
			scraped_date = excluded.scraped_date
	`, item.SourceID, item.URL, item.Title, string(item.ContentType), item.Summary, item.EngagementScore,
		item.CommentCount, item.FirstPosted.UTC().Format(time.RFC3339), nilableTime(item.LastEdited),
		nilableTime(item.LastCommentAt), item.LastCheckedAt.UTC().Format(time.RFC3339),
		item.ScrapedDate.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, canon.WrapStore("upsert_content_item", err)
	}
	return s.getContentItem(ctx, item.SourceID)
}

func (s *Store) getContentItem(ctx context.Context, sourceID string) (*canon.ContentItem, error) {
	row := s.exec.QueryRowContext(ctx, `
		SELECT source_id, url, title, content_type, summary, engagement_score, comment_count,
			first_posted, last_edited, last_comment_at, last_checked_at, scraped_date
		FROM content_items WHERE source_id = ?
	`, sourceID)

	var c canon.ContentItem
	var contentType string
	var lastEdited, lastCommentAt sql.NullString
	var firstPosted, lastChecked, scraped string
	if err := row.Scan(&c.SourceID, &c.URL, &c.Title, &contentType, &c.Summary, &c.EngagementScore,
		&c.CommentCount, &firstPosted, &lastEdited, &lastCommentAt, &lastChecked, &scraped); err != nil {
		return nil, canon.WrapStore("get_content_item", err)
	}
	c.ContentType = canon.ContentType(contentType)
	c.FirstPosted, _ = time.Parse(time.RFC3339, firstPosted)
	c.LastCheckedAt, _ = time.Parse(time.RFC3339, lastChecked)
	c.ScrapedDate, _ = time.Parse(time.RFC3339, scraped)
	var err error
	if c.LastEdited, err = parseNilableTime(lastEdited); err != nil {
		return nil, canon.WrapStore("get_content_item", err)
	}
	if c.LastCommentAt, err = parseNilableTime(lastCommentAt); err != nil {
		return nil, canon.WrapStore("get_content_item", err)
	}
	return &c, nil
}

// InsertComment is additive; old positions are retained.
func (s *Store) InsertComment(ctx context.Context, c canon.ContentComment) error {
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO content_comments (content_id, comment_text, posted_at, position)
		VALUES (?, ?, ?, ?)
	`, c.ContentID, c.CommentText, c.PostedAt.UTC().Format(time.RFC3339), c.Position)
	return wrapDBError("insert_comment", err)
}

// UpsertFeatureRef enforces the at-least-one-FK invariant in Go (SQLite's
// CHECK constraint support varies by build) and the uniqueness
// constraint via ON CONFLICT DO UPDATE, which refreshes an existing
// ref's mention_type, confidence and needs_triage.
func (s *Store) UpsertFeatureRef(ctx context.Context, ref canon.ContentFeatureRef) error {
	if !ref.HasTarget() {
		return canon.WrapClassification("upsert_feature_ref", errors.New("at least one of feature_id/option_id/setting_id must be set"))
	}
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO content_feature_refs (content_id, feature_id, option_id, setting_id, mention_type, confidence, needs_triage)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id, feature_id, option_id, setting_id) DO UPDATE SET
			mention_type = excluded.mention_type,
			confidence = excluded.confidence,
			needs_triage = excluded.needs_triage
	`, ref.ContentID, ref.FeatureID, ref.OptionID, ref.SettingID, string(ref.MentionType), ref.Confidence, nilableBool(&ref.NeedsTriage))
	return wrapDBError("upsert_feature_ref", err)
}

// InsertUpcomingChange records one parsed upcoming-change entry.
func (s *Store) InsertUpcomingChange(ctx context.Context, c canon.UpcomingChange) error {
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO upcoming_changes (content_id, change_date, description) VALUES (?, ?, ?)
	`, c.ContentID, nilableTime(c.ChangeDate), c.Description)
	return wrapDBError("insert_upcoming_change", err)
}

// GetDiscussionTracking returns nil, nil when no row exists for sourceID.
func (s *Store) GetDiscussionTracking(ctx context.Context, sourceID string) (*canon.DiscussionTracking, error) {
	row := s.exec.QueryRowContext(ctx, `
		SELECT source_id, comment_count, last_comment_at, last_emitted_at
		FROM discussion_tracking WHERE source_id = ?
	`, sourceID)

	var t canon.DiscussionTracking
	var lastComment, lastEmitted string
	if err := row.Scan(&t.SourceID, &t.CommentCount, &lastComment, &lastEmitted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, canon.WrapStore("get_discussion_tracking", err)
	}
	t.LastCommentAt, _ = time.Parse(time.RFC3339, lastComment)
	t.LastEmittedAt, _ = time.Parse(time.RFC3339, lastEmitted)
	return &t, nil
}

// UpsertDiscussionTracking overwrites the tracked state for t.SourceID.
func (s *Store) UpsertDiscussionTracking(ctx context.Context, t canon.DiscussionTracking) error {
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO discussion_tracking (source_id, comment_count, last_comment_at, last_emitted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			comment_count = excluded.comment_count,
			last_comment_at = excluded.last_comment_at,
			last_emitted_at = excluded.last_emitted_at
	`, t.SourceID, t.CommentCount, t.LastCommentAt.UTC().Format(time.RFC3339), t.LastEmittedAt.UTC().Format(time.RFC3339))
	return wrapDBError("upsert_discussion_tracking", err)
}

// IsFirstRunForType reports whether zero rows of contentType exist.
func (s *Store) IsFirstRunForType(ctx context.Context, contentType canon.ContentType) (bool, error) {
	var n int
	row := s.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items WHERE content_type = ?`, string(contentType))
	if err := row.Scan(&n); err != nil {
		return false, canon.WrapStore("is_first_run_for_type", err)
	}
	return n == 0, nil
}

// WasEmitted reports whether guid was recorded as emitted in a prior run.
func (s *Store) WasEmitted(ctx context.Context, guid string) (bool, error) {
	var n int
	row := s.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM emitted_guids WHERE guid = ?`, guid)
	if err := row.Scan(&n); err != nil {
		return false, canon.WrapStore("was_emitted", err)
	}
	return n > 0, nil
}

// MarkEmitted records guid as emitted as of at.
func (s *Store) MarkEmitted(ctx context.Context, guid string, at time.Time) error {
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO emitted_guids (guid, emitted_at) VALUES (?, ?)
		ON CONFLICT(guid) DO UPDATE SET emitted_at = excluded.emitted_at
	`, guid, at.UTC().Format(time.RFC3339))
	return wrapDBError("mark_emitted", err)
}

// RecordFeedRun persists a completed run's payload and item count.
func (s *Store) RecordFeedRun(ctx context.Context, run canon.FeedRun) error {
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO feed_runs (feed_date, item_count, payload, generated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(feed_date) DO UPDATE SET item_count = excluded.item_count, payload = excluded.payload, generated_at = excluded.generated_at
	`, run.FeedDate, run.ItemCount, run.Payload, run.GeneratedAt.UTC().Format(time.RFC3339))
	return wrapDBError("record_feed_run", err)
}

// ListCanonicalTargets unions features, options, and settings into one
// flat slice for the classifier's community-mention matcher.
func (s *Store) ListCanonicalTargets(ctx context.Context) ([]store.CanonicalTarget, error) {
	rows, err := s.exec.QueryContext(ctx, `
		SELECT feature_id, '', '', name FROM features
		UNION ALL
		SELECT feature_id, option_id, '', canonical_name FROM feature_options
		UNION ALL
		SELECT feature_id, '', setting_id, title FROM feature_settings
	`)
	if err != nil {
		return nil, canon.WrapStore("list_canonical_targets", err)
	}
	defer rows.Close()

	var targets []store.CanonicalTarget
	for rows.Next() {
		var t store.CanonicalTarget
		if err := rows.Scan(&t.FeatureID, &t.OptionID, &t.SettingID, &t.Name); err != nil {
			return nil, canon.WrapStore("list_canonical_targets", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, canon.WrapStore("list_canonical_targets", err)
	}
	return targets, nil
}

// GetContentItem returns nil, nil when sourceID is unknown.
func (s *Store) GetContentItem(ctx context.Context, sourceID string) (*canon.ContentItem, error) {
	item, err := s.getContentItem(ctx, sourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func (s *Store) listFeatureRefs(ctx context.Context, where string, arg any) ([]canon.ContentFeatureRef, error) {
	rows, err := s.exec.QueryContext(ctx, `
		SELECT content_id, feature_id, option_id, setting_id, mention_type, confidence, needs_triage
		FROM content_feature_refs WHERE `+where, arg)
	if err != nil {
		return nil, canon.WrapStore("list_feature_refs", err)
	}
	defer rows.Close()

	var refs []canon.ContentFeatureRef
	for rows.Next() {
		var r canon.ContentFeatureRef
		var mentionType string
		var needsTriage int
		if err := rows.Scan(&r.ContentID, &r.FeatureID, &r.OptionID, &r.SettingID, &mentionType, &r.Confidence, &needsTriage); err != nil {
			return nil, canon.WrapStore("list_feature_refs", err)
		}
		r.MentionType = canon.MentionType(mentionType)
		r.NeedsTriage = needsTriage != 0
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, canon.WrapStore("list_feature_refs", err)
	}
	return refs, nil
}

// ListFeatureRefsByFeature lists every ref pointing at featureID.
func (s *Store) ListFeatureRefsByFeature(ctx context.Context, featureID string) ([]canon.ContentFeatureRef, error) {
	return s.listFeatureRefs(ctx, "feature_id = ?", featureID)
}

// ListRefsNeedingTriage lists every ref flagged NeedsTriage.
func (s *Store) ListRefsNeedingTriage(ctx context.Context) ([]canon.ContentFeatureRef, error) {
	return s.listFeatureRefs(ctx, "needs_triage = 1", nil)
}

// ReassignFeatureRef overwrites contentID's existing general/suggested ref
// with a manually-confirmed target (spec.md §4.3's general/triage bucket,
// CLI `general assign`).
func (s *Store) ReassignFeatureRef(ctx context.Context, contentID, featureID, optionID, settingID string) error {
	_, err := s.exec.ExecContext(ctx, `
		DELETE FROM content_feature_refs WHERE content_id = ? AND mention_type != ?
	`, contentID, string(canon.MentionAnnounces))
	if err != nil {
		return wrapDBError("reassign_feature_ref", err)
	}
	return s.UpsertFeatureRef(ctx, canon.ContentFeatureRef{
		ContentID: contentID, FeatureID: featureID, OptionID: optionID, SettingID: settingID,
		MentionType: canon.MentionDiscusses, Confidence: 1, NeedsTriage: false,
	})
}

// GetOption exposes getOption publicly for the `regenerate` CLI surface.
func (s *Store) GetOption(ctx context.Context, optionID string) (*canon.FeatureOption, error) {
	return s.getOption(ctx, optionID)
}

// GetSetting exposes getSetting publicly for the `regenerate` CLI surface.
func (s *Store) GetSetting(ctx context.Context, settingID, featureID string) (*canon.FeatureSetting, error) {
	return s.getSetting(ctx, settingID, featureID)
}

// GetFeature looks up one feature by ID, for the `regenerate` CLI surface.
func (s *Store) GetFeature(ctx context.Context, featureID string) (*canon.Feature, error) {
	row := s.exec.QueryRowContext(ctx, `
		SELECT feature_id, name, status, description, llm_generated_at, created_at
		FROM features WHERE feature_id = ?
	`, featureID)
	var f canon.Feature
	var llmGeneratedAt sql.NullString
	var createdAt string
	if err := row.Scan(&f.FeatureID, &f.Name, &f.Status, &f.Description, &llmGeneratedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, canon.WrapStore("get_feature", err)
	}
	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	var err error
	if f.LLMGeneratedAt, err = parseNilableTime(llmGeneratedAt); err != nil {
		return nil, canon.WrapStore("get_feature", err)
	}
	return &f, nil
}

// UpdateOptionEnrichment persists regenerated prose without touching
// lifecycle fields, for the `regenerate` CLI surface.
func (s *Store) UpdateOptionEnrichment(ctx context.Context, optionID, description, metaSummary, implementationStatus string) error {
	_, err := s.exec.ExecContext(ctx, `
		UPDATE feature_options SET description = ?, meta_summary = ?, implementation_status = ? WHERE option_id = ?
	`, description, metaSummary, implementationStatus, optionID)
	return wrapDBError("update_option_enrichment", err)
}

// UpdateSettingEnrichment persists regenerated prose without touching
// lifecycle fields, for the `regenerate` CLI surface.
func (s *Store) UpdateSettingEnrichment(ctx context.Context, settingID, featureID, description, metaSummary, implementationStatus string) error {
	_, err := s.exec.ExecContext(ctx, `
		UPDATE feature_settings SET description = ?, meta_summary = ?, implementation_status = ? WHERE setting_id = ? AND feature_id = ?
	`, description, metaSummary, implementationStatus, settingID, featureID)
	return wrapDBError("update_setting_enrichment", err)
}

// ListOptionsMissingEnrichment lists options with an empty description,
// for `regenerate options --missing`.
func (s *Store) ListOptionsMissingEnrichment(ctx context.Context) ([]canon.FeatureOption, error) {
	rows, err := s.exec.QueryContext(ctx, `SELECT option_id FROM feature_options WHERE description = ''`)
	if err != nil {
		return nil, canon.WrapStore("list_options_missing_enrichment", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, canon.WrapStore("list_options_missing_enrichment", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, canon.WrapStore("list_options_missing_enrichment", err)
	}
	var out []canon.FeatureOption
	for _, id := range ids {
		o, err := s.getOption(ctx, id)
		if err != nil {
			return nil, err
		}
		if o != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

// ListSettingsMissingEnrichment lists settings with an empty description.
// No regenerate subcommand calls it; `regenerate meta-summaries` covers
// options only.
func (s *Store) ListSettingsMissingEnrichment(ctx context.Context) ([]canon.FeatureSetting, error) {
	rows, err := s.exec.QueryContext(ctx, `SELECT setting_id, feature_id FROM feature_settings WHERE description = ''`)
	if err != nil {
		return nil, canon.WrapStore("list_settings_missing_enrichment", err)
	}
	defer rows.Close()
	type key struct{ settingID, featureID string }
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.settingID, &k.featureID); err != nil {
			return nil, canon.WrapStore("list_settings_missing_enrichment", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, canon.WrapStore("list_settings_missing_enrichment", err)
	}
	var out []canon.FeatureSetting
	for _, k := range keys {
		st, err := s.getSetting(ctx, k.settingID, k.featureID)
		if err != nil {
			return nil, err
		}
		if st != nil {
			out = append(out, *st)
		}
	}
	return out, nil
}

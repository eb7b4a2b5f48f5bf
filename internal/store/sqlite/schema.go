package sqlite

// schemaVersion is bumped whenever migrations gains an entry. It is
// stored in SQLite's user_version pragma so Open() only applies
// migrations a given database file hasn't seen yet.
const schemaVersion = 1

// migrations is applied in order, once, against a fresh or upgrading
// database. Each entry is idempotent SQL (CREATE TABLE/INDEX IF NOT
// EXISTS) so re-running a migration that already landed is harmless.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS features (
		feature_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		description TEXT NOT NULL DEFAULT '',
		llm_generated_at TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feature_options (
		option_id TEXT PRIMARY KEY,
		feature_id TEXT NOT NULL REFERENCES features(feature_id),
		canonical_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		beta_date TEXT,
		production_date TEXT,
		deprecation_date TEXT,
		description TEXT NOT NULL DEFAULT '',
		meta_summary TEXT NOT NULL DEFAULT '',
		implementation_status TEXT NOT NULL DEFAULT '',
		user_group_url TEXT NOT NULL DEFAULT '',
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feature_settings (
		setting_id TEXT NOT NULL,
		feature_id TEXT NOT NULL REFERENCES features(feature_id),
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		beta_date TEXT,
		production_date TEXT,
		deprecation_date TEXT,
		description TEXT NOT NULL DEFAULT '',
		meta_summary TEXT NOT NULL DEFAULT '',
		implementation_status TEXT NOT NULL DEFAULT '',
		user_group_url TEXT NOT NULL DEFAULT '',
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		PRIMARY KEY (setting_id, feature_id)
	)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id TEXT PRIMARY KEY,
		feature_id TEXT NOT NULL,
		option_id TEXT NOT NULL DEFAULT '',
		setting_id TEXT NOT NULL DEFAULT '',
		content_id TEXT NOT NULL,
		h4_title TEXT NOT NULL,
		anchor_id TEXT NOT NULL,
		section TEXT NOT NULL,
		category TEXT NOT NULL,
		raw_content TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		implications TEXT NOT NULL DEFAULT '',
		enable_location_account TEXT NOT NULL DEFAULT '',
		enable_location_course TEXT NOT NULL DEFAULT '',
		subaccount_config INTEGER,
		permissions TEXT NOT NULL DEFAULT '',
		affected_areas TEXT NOT NULL DEFAULT '',
		affects_ui INTEGER,
		added_date TEXT,
		announced_at TEXT NOT NULL,
		UNIQUE (content_id, anchor_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_announcements_option ON announcements(option_id)`,
	`CREATE INDEX IF NOT EXISTS idx_announcements_setting ON announcements(setting_id)`,
	`CREATE TABLE IF NOT EXISTS content_items (
		source_id TEXT PRIMARY KEY,
		url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		engagement_score REAL NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		first_posted TEXT NOT NULL,
		last_edited TEXT,
		last_comment_at TEXT,
		last_checked_at TEXT NOT NULL,
		scraped_date TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_items_type ON content_items(content_type)`,
	`CREATE TABLE IF NOT EXISTS content_comments (
		content_id TEXT NOT NULL REFERENCES content_items(source_id),
		comment_text TEXT NOT NULL,
		posted_at TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS content_feature_refs (
		content_id TEXT NOT NULL,
		feature_id TEXT NOT NULL DEFAULT '',
		option_id TEXT NOT NULL DEFAULT '',
		setting_id TEXT NOT NULL DEFAULT '',
		mention_type TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1,
		needs_triage INTEGER NOT NULL DEFAULT 0,
		UNIQUE (content_id, feature_id, option_id, setting_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_feature_refs_triage ON content_feature_refs(needs_triage)`,
	`CREATE INDEX IF NOT EXISTS idx_content_feature_refs_feature ON content_feature_refs(feature_id)`,
	`CREATE TABLE IF NOT EXISTS upcoming_changes (
		content_id TEXT NOT NULL,
		change_date TEXT,
		description TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS discussion_tracking (
		source_id TEXT PRIMARY KEY,
		comment_count INTEGER NOT NULL,
		last_comment_at TEXT NOT NULL,
		last_emitted_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feed_runs (
		feed_date TEXT PRIMARY KEY,
		item_count INTEGER NOT NULL,
		payload BLOB,
		generated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS emitted_guids (
		guid TEXT PRIMARY KEY,
		emitted_at TEXT NOT NULL
	)`,
}

// Package config loads the engine's runtime configuration: a primary
// TOML file for source/processing/RSS/first-run settings, and a
// companion YAML file of classifier overrides (see overrides.go).
// Precedence: environment variables override file values, which
// override the defaults below.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the root of the TOML config file (spec.md §6).
type Config struct {
	Sources    SourcesConfig    `toml:"sources"`
	Processing ProcessingConfig `toml:"processing"`
	RSS        RSSConfig        `toml:"rss"`
	FirstRun   FirstRunConfig   `toml:"firstrun"`
}

// SourcesConfig controls which fetchers run and with what limits.
type SourcesConfig struct {
	InstructureCommunity InstructureCommunityConfig `toml:"instructure_community"`
	Reddit               RedditConfig               `toml:"reddit"`
	StatusPage           StatusPageConfig           `toml:"status_page"`
}

// InstructureCommunityConfig controls the release/deploy-note and
// blog/Q&A browser-driven fetcher.
type InstructureCommunityConfig struct {
	Enabled         bool     `toml:"enabled"`
	MaxPages        int      `toml:"max_pages"`
	ReleaseNoteURLs []string `toml:"release_note_urls"`
	DeployNoteURLs  []string `toml:"deploy_note_urls"`
}

// RedditConfig controls the Reddit submission fetcher.
type RedditConfig struct {
	Enabled     bool     `toml:"enabled"`
	MinScore    int      `toml:"min_score"`
	Subreddits  []string `toml:"subreddits"`
	Keywords    []string `toml:"keywords"`
}

// StatusPageConfig controls the Canvas status-incident fetcher.
type StatusPageConfig struct {
	Enabled bool `toml:"enabled"`
}

// ProcessingConfig controls enrichment behavior (spec.md §6).
type ProcessingConfig struct {
	Summarization       SummarizationConfig       `toml:"summarization"`
	SentimentAnalysis   FeatureToggle             `toml:"sentiment_analysis"`
	TopicClassification FeatureToggle             `toml:"topic_classification"`
}

// SummarizationConfig bounds the LLM-generated prose length.
type SummarizationConfig struct {
	MaxLength int `toml:"max_length"`
}

// FeatureToggle is a bare on/off switch for a processing stage the core
// does not itself implement but must surface as configuration (spec.md
// §9 Open Question (a)).
type FeatureToggle struct {
	Enabled bool `toml:"enabled"`
}

// RSSConfig controls the serialized feed's channel metadata.
type RSSConfig struct {
	Title       string `toml:"title"`
	Link        string `toml:"link"`
	Description string `toml:"description"`
	MaxItems    int    `toml:"max_items"`
}

// FirstRunConfig names the flood-prevention caps from spec.md §4.5 so
// operators can retune them without a rebuild. Zero means "uncapped".
type FirstRunConfig struct {
	Question   int `toml:"question"`
	Blog       int `toml:"blog"`
	ReleaseNote int `toml:"release_note"`
	DeployNote  int `toml:"deploy_note"`
}

// Default returns the built-in defaults, applied before any config file
// or environment variable is consulted.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			InstructureCommunity: InstructureCommunityConfig{
				Enabled:  true,
				MaxPages: 5,
				ReleaseNoteURLs: []string{
					"https://community.canvaslms.com/t5/Canvas-Release-Notes/ct-p/canvas_release_notes",
				},
				DeployNoteURLs: []string{
					"https://community.canvaslms.com/t5/Canvas-Deploy-Notes/ct-p/canvas_deploy_notes",
				},
			},
			Reddit: RedditConfig{
				Enabled:    true,
				MinScore:   1,
				Subreddits: []string{"canvas", "instructionaldesign"},
			},
			StatusPage: StatusPageConfig{Enabled: true},
		},
		Processing: ProcessingConfig{
			Summarization: SummarizationConfig{MaxLength: 400},
		},
		RSS: RSSConfig{
			Title:       "Canvas LMS Changes",
			Description: "Automatically detected Canvas LMS feature and discussion changes",
			MaxItems:    100,
		},
		FirstRun: FirstRunConfig{
			Question:    5,
			Blog:        5,
			ReleaseNote: 3,
			DeployNote:  3,
		},
	}
}

// Load reads path (if non-empty and present) over the defaults, then
// layers environment variable overrides on top. A missing path is not
// an error — the config file is optional, and lookup is best-effort.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables that take precedence over
// both defaults and file config. Credentials live here rather than in
// the TOML file so they never land in a committed config (spec.md §6
// "Environment").
func (c *Config) applyEnv() {
	if v := os.Getenv("CANVASFEED_REDDIT_ENABLED"); v != "" {
		c.Sources.Reddit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CANVASFEED_STATUS_ENABLED"); v != "" {
		c.Sources.StatusPage.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CANVASFEED_RSS_MAX_ITEMS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.RSS.MaxItems = n
		}
	}
}

// RedditCredentials holds the OAuth application credentials read from
// the environment. Absence degrades the run to status + community
// sources only (spec.md §6 "Environment").
type RedditCredentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// LoadRedditCredentials reads Reddit API credentials from the
// environment. The returned value's Available() is false if any
// required field is missing.
func LoadRedditCredentials() RedditCredentials {
	return RedditCredentials{
		ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		Username:     os.Getenv("REDDIT_USERNAME"),
		Password:     os.Getenv("REDDIT_PASSWORD"),
	}
}

// Available reports whether enough credentials are present to
// authenticate against Reddit.
func (r RedditCredentials) Available() bool {
	return r.ClientID != "" && r.ClientSecret != ""
}

// AnthropicAPIKey reads the LLM provider credential. Absence degrades
// enrichment to structured data without generated prose (spec.md §6).
func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// DefaultAnthropicModel is the enrichment gateway's model when
// CANVASFEED_ANTHROPIC_MODEL is unset.
const DefaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicModel reads the configured model override, falling back to
// DefaultAnthropicModel.
func AnthropicModel() string {
	if v := os.Getenv("CANVASFEED_ANTHROPIC_MODEL"); v != "" {
		return v
	}
	return DefaultAnthropicModel
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.FirstRun.Question)
	assert.Equal(t, 3, cfg.FirstRun.ReleaseNote)
	assert.True(t, cfg.Sources.Reddit.Enabled)
	assert.Equal(t, []string{"canvas", "instructionaldesign"}, cfg.Sources.Reddit.Subreddits)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvasfeed.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[sources.reddit]
enabled = false
min_score = 10
subreddits = ["canvas"]

[rss]
title = "My Feed"
max_items = 50

[firstrun]
question = 8
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Sources.Reddit.Enabled)
	assert.Equal(t, 10, cfg.Sources.Reddit.MinScore)
	assert.Equal(t, "My Feed", cfg.RSS.Title)
	assert.Equal(t, 50, cfg.RSS.MaxItems)
	assert.Equal(t, 8, cfg.FirstRun.Question)
	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.FirstRun.DeployNote)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvasfeed.toml")
	require.NoError(t, os.WriteFile(path, []byte("[rss]\nmax_items = 50\n"), 0o644))
	t.Setenv("CANVASFEED_RSS_MAX_ITEMS", "7")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RSS.MaxItems)
}

func TestRedditCredentials_Available(t *testing.T) {
	assert.False(t, RedditCredentials{}.Available())
	assert.True(t, RedditCredentials{ClientID: "a", ClientSecret: "b"}.Available())
}

func TestLoadOverrides_MissingFileIsEmpty(t *testing.T) {
	set, err := LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	_, found := set.Lookup("anything", "anything")
	assert.False(t, found)
}

func TestLoadOverrides_AnchorTakesPriorityOverTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classification_overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
overrides:
  - anchor_id: force-setting
    classify_as: setting
  - h4_title: "Some Toggle"
    classify_as: option
    canonical_name: "Some Toggle Renamed"
`), 0o644))

	set, err := LoadOverrides(path)
	require.NoError(t, err)

	o, found := set.Lookup("force-setting", "Some Toggle")
	require.True(t, found)
	assert.Equal(t, "setting", o.ClassifyAs)

	o, found = set.Lookup("", "Some Toggle")
	require.True(t, found)
	assert.Equal(t, "option", o.ClassifyAs)
	assert.Equal(t, "Some Toggle Renamed", o.CanonicalName)
}

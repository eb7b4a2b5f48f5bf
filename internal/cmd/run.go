package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/config"
	"github.com/titulartarantula/canvas-rss-sub001/internal/enrich"
	"github.com/titulartarantula/canvas-rss-sub001/internal/fetch"
	"github.com/titulartarantula/canvas-rss-sub001/internal/fetch/browser"
	"github.com/titulartarantula/canvas-rss-sub001/internal/fetch/reddit"
	"github.com/titulartarantula/canvas-rss-sub001/internal/fetch/status"
	"github.com/titulartarantula/canvas-rss-sub001/internal/orchestrator"
	"github.com/titulartarantula/canvas-rss-sub001/internal/rss"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store/sqlite"
)

// canvasStatusIncidentsURL is Canvas's public status-page incident feed
// (spec.md §6 "Canvas status API (JSON)").
const canvasStatusIncidentsURL = "https://status.instructure.com/api/v2/incidents.json"

var (
	runConfigPath string
	runDBPath     string
	runOutPath    string
)

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: GroupPipeline,
	Short:   "Run one batch pipeline pass and write the RSS feed",
	RunE:    runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to canvasfeed.toml (optional)")
	runCmd.Flags().StringVar(&runDBPath, "db", "canvasfeed.db", "path to the canonical sqlite store")
	runCmd.Flags().StringVar(&runOutPath, "out", "feed.xml", "path to write the serialized RSS feed")
	rootCmd.AddCommand(runCmd)
}

// buildFetchJobs turns the configured release/deploy-note URLs into the
// orchestrator's fetch job list, tagged with the content type each URL
// set is classified under (spec.md §4.2).
func buildFetchJobs(cfg config.InstructureCommunityConfig) []orchestrator.FetchJob {
	if !cfg.Enabled {
		return nil
	}
	var jobs []orchestrator.FetchJob
	for _, u := range cfg.ReleaseNoteURLs {
		jobs = append(jobs, orchestrator.FetchJob{URL: u, ContentType: canon.ContentReleaseNote})
	}
	for _, u := range cfg.DeployNoteURLs {
		jobs = append(jobs, orchestrator.FetchJob{URL: u, ContentType: canon.ContentDeployNote})
	}
	return jobs
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}

	overrides, err := config.LoadOverrides("")
	if err != nil {
		return err
	}

	s, err := sqlite.Open(runDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	var pages fetch.PageSource
	if cfg.Sources.InstructureCommunity.Enabled {
		b := browser.New()
		defer b.Close()
		pages = b
	}

	var redditSource fetch.RedditSource
	creds := config.LoadRedditCredentials()
	if cfg.Sources.Reddit.Enabled && creds.Available() {
		redditSource = reddit.New(creds, cfg.Sources.Reddit.MinScore, "canvasfeed/1.0")
	}

	var statusSource fetch.StatusSource
	if cfg.Sources.StatusPage.Enabled {
		statusSource = status.New(canvasStatusIncidentsURL)
	}

	var gateway enrich.Gateway
	if apiKey := config.AnthropicAPIKey(); apiKey != "" {
		gateway = enrich.NewAnthropicGateway(apiKey, anthropic.Model(config.AnthropicModel()))
	} else {
		gateway = &enrich.StubGateway{}
	}

	orch := orchestrator.New(s, pages, redditSource, statusSource, cfg.Sources.Reddit, overrides, cfg.FirstRun, gateway)

	jobs := buildFetchJobs(cfg.Sources.InstructureCommunity)

	ctx := cmd.Context()
	items, err := orch.Run(ctx, jobs)
	if err != nil {
		return err
	}

	if cfg.RSS.MaxItems > 0 && len(items) > cfg.RSS.MaxItems {
		items = items[:cfg.RSS.MaxItems]
	}

	var buf bytes.Buffer
	now := time.Now()
	if err := rss.Serialize(&buf, cfg.RSS, items, now); err != nil {
		return err
	}

	if err := os.WriteFile(runOutPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing feed file %s: %w", runOutPath, err)
	}

	if err := orch.Commit(ctx, items, buf.Bytes(), now); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "canvasfeed: wrote %d items to %s\n", len(items), runOutPath)
	return nil
}

// Package cmd provides the canvasfeed CLI: a thin wrapper around the
// engine's batch pipeline and store, never itself holding business logic
// (spec.md §6 "CLI surface (thin wrapper, not core)").
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Command groups, shown as section headers in `canvasfeed --help`.
const (
	GroupPipeline = "pipeline"
	GroupTriage   = "triage"
)

var rootCmd = &cobra.Command{
	Use:   "canvasfeed",
	Short: "Detects and classifies Canvas LMS changes into an RSS feed",
	Long: `canvasfeed watches Canvas LMS release/deploy notes, community
discussion, and status incidents, classifies what changed against a
canonical feature graph, and assembles the result into an RSS feed.

Commands:
  canvasfeed run                              Run one batch pipeline pass
  canvasfeed regenerate feature|option|...    Re-run enrichment for one node
  canvasfeed general list|show|assign|triage  Manage the low-confidence bucket`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPipeline, Title: "Pipeline commands:"},
		&cobra.Group{ID: GroupTriage, Title: "Triage commands:"},
	)
}

// requireSubcommand is RunE for any parent command that exists only to
// group subcommands; invoking it bare prints help instead of erroring.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// Execute runs the CLI and returns the process exit code: 0 on success,
// 1 on error (spec.md §6).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "canvasfeed:", err)
		return 1
	}
	return 0
}

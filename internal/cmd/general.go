package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/titulartarantula/canvas-rss-sub001/internal/classifier"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store/sqlite"
	"github.com/titulartarantula/canvas-rss-sub001/internal/style"
)

var generalDBPath string

var generalCmd = &cobra.Command{
	Use:     "general",
	GroupID: GroupTriage,
	Short:   "Manage content bucketed under the low-confidence \"general\" feature",
	RunE:    requireSubcommand,
}

func init() {
	generalCmd.PersistentFlags().StringVar(&generalDBPath, "db", "canvasfeed.db", "path to the canonical sqlite store")

	generalCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every content item bucketed under \"general\"",
			Args:  cobra.NoArgs,
			RunE:  generalList,
		},
		&cobra.Command{
			Use:   "show <source_id>",
			Short: "Show one content item's classification",
			Args:  cobra.ExactArgs(1),
			RunE:  generalShow,
		},
		&cobra.Command{
			Use:   "assign <source_id> <feature_id> [option_id] [setting_id]",
			Short: "Manually reassign a content item to a confirmed feature/option/setting",
			Args:  cobra.RangeArgs(2, 4),
			RunE:  generalAssign,
		},
		&cobra.Command{
			Use:   "triage",
			Short: "List every ref in the 0.5-0.8 suggest confidence band",
			Args:  cobra.NoArgs,
			RunE:  generalTriage,
		},
	)

	rootCmd.AddCommand(generalCmd)
}

func generalList(cmd *cobra.Command, args []string) error {
	s, err := sqlite.Open(generalDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	refs, err := s.ListFeatureRefsByFeature(cmd.Context(), classifier.GeneralFeatureID)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), style.Dim.Render("no content is currently bucketed under \"general\""))
		return nil
	}

	t := style.NewTable(
		style.Column{Name: "CONTENT ID", Width: 28},
		style.Column{Name: "MENTION", Width: 12},
		style.Column{Name: "CONFIDENCE", Width: 10, Align: style.AlignRight},
		style.Column{Name: "TRIAGE", Width: 8},
	)
	for _, ref := range refs {
		triage := ""
		if ref.NeedsTriage {
			triage = style.ErrorText.Render("needed")
		}
		t.AddRow(ref.ContentID, string(ref.MentionType), fmt.Sprintf("%.2f", ref.Confidence), triage)
	}
	fmt.Fprint(cmd.OutOrStdout(), t.Render())
	return nil
}

func generalShow(cmd *cobra.Command, args []string) error {
	s, err := sqlite.Open(generalDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	sourceID := args[0]
	item, err := s.GetContentItem(cmd.Context(), sourceID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("content item %q not found", sourceID)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", style.Bold.Render(item.Title), style.Dim.Render(string(item.ContentType)))
	fmt.Fprintf(out, "  url: %s\n", item.URL)
	fmt.Fprintf(out, "  summary: %s\n", item.Summary)

	refs, err := s.ListFeatureRefsByFeature(cmd.Context(), classifier.GeneralFeatureID)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.ContentID != item.SourceID {
			continue
		}
		fmt.Fprintf(out, "  ref: %s confidence=%.2f needs_triage=%t\n", ref.MentionType, ref.Confidence, ref.NeedsTriage)
	}
	return nil
}

func generalAssign(cmd *cobra.Command, args []string) error {
	s, err := sqlite.Open(generalDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	sourceID, featureID := args[0], args[1]
	var optionID, settingID string
	if len(args) > 2 {
		optionID = args[2]
	}
	if len(args) > 3 {
		settingID = args[3]
	}

	if err := s.ReassignFeatureRef(cmd.Context(), sourceID, featureID, optionID, settingID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reassigned %s to feature=%s option=%s setting=%s\n", sourceID, featureID, optionID, settingID)
	return nil
}

func generalTriage(cmd *cobra.Command, args []string) error {
	s, err := sqlite.Open(generalDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	refs, err := s.ListRefsNeedingTriage(cmd.Context())
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), style.Dim.Render("nothing needs triage"))
		return nil
	}

	t := style.NewTable(
		style.Column{Name: "CONTENT ID", Width: 28},
		style.Column{Name: "FEATURE", Width: 16},
		style.Column{Name: "CONFIDENCE", Width: 10, Align: style.AlignRight},
	)
	for _, ref := range refs {
		t.AddRow(ref.ContentID, ref.FeatureID, fmt.Sprintf("%.2f", ref.Confidence))
	}
	fmt.Fprint(cmd.OutOrStdout(), t.Render())
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/types"
	"github.com/officetracker/oit/internal/ui"
)

var commentsCmd = &cobra.Command{
	Use:     "comments",
	GroupID: "issues",
	Short:   "View or add comments on an issue",
}

var commentsListCmd = &cobra.Command{
	Use:   "list <issue-id>",
	Short: "List the comments of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("issue", args[0])
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		comments, err := a.tracker.Comments(commandContext(), id)
		if err != nil {
			return err
		}
		if comments == nil {
			comments = []types.Comment{}
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), comments)
		}
		if len(comments) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No comments on #%d\n", id)
			return nil
		}
		printComments(cmd.OutOrStdout(), comments)
		return nil
	},
}

func printComments(w io.Writer, comments []types.Comment) {
	fmt.Fprintf(w, "%s\n\n", ui.RenderCategory(fmt.Sprintf("Comments (%d)", len(comments))))
	for _, c := range comments {
		header := fmt.Sprintf("[%s] %s", c.AuthorName, ui.RelativeTime(c.CreatedAt))
		if c.IsPlaceholder() {
			header += " " + ui.RenderMuted(ui.IconPending)
		}
		fmt.Fprintln(w, header)
		rendered := ui.RenderMarkdown(c.Text)
		for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintln(w)
	}
}

var commentsAddCmd = &cobra.Command{
	Use:   "add <issue-id> [text]",
	Short: "Add a comment to an issue",
	Long: `Add a comment to an issue.

Examples:
  oit comments add 42 "Facility management has been informed"
  oit comments add 42 -f notes.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("issue", args[0])
		if err != nil {
			return err
		}
		var text string
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			data, err := os.ReadFile(path) // #nosec G304 - user-provided file path is intentional
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			text = string(data)
		} else if len(args) < 2 {
			return fmt.Errorf("comment text required (use -f to read from file)")
		} else {
			text = args[1]
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		comment, err := a.tracker.AddComment(commandContext(), id, text)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), comment)
		}
		printNormal(cmd, "%s Comment added to #%d\n", ui.RenderPass(ui.IconPass), id)
		return nil
	},
}

func init() {
	commentsAddCmd.Flags().StringP("file", "f", "", "Read comment text from file")
	commentsCmd.AddCommand(commentsListCmd, commentsAddCmd)
	rootCmd.AddCommand(commentsCmd)
}

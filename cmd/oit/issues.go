package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/api"
	"github.com/officetracker/oit/internal/attach"
	"github.com/officetracker/oit/internal/timeparsing"
	"github.com/officetracker/oit/internal/types"
	"github.com/officetracker/oit/internal/ui"
)

var issuesCmd = &cobra.Command{
	Use:     "issues",
	Aliases: []string{"issue"},
	GroupID: "issues",
	Short:   "List, show and manage issues",
}

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Long: `List issues, newest first by default.

Examples:
  oit issues list --status open --office 3
  oit issues list --sort most-voted --size 50
  oit issues list --updated-since "3 days ago"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := issueFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		var since time.Time
		if s, _ := cmd.Flags().GetString("updated-since"); s != "" {
			since, err = timeparsing.ParseSince(s, time.Now())
			if err != nil {
				return fmt.Errorf("--updated-since: %w", err)
			}
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		page, err := a.tracker.Issues(commandContext(), filter)
		if err != nil {
			return err
		}
		page.Items = updatedSince(page.Items, since)

		if jsonOutput {
			if page.Items == nil {
				page.Items = []types.Issue{}
			}
			return outputJSON(cmd.OutOrStdout(), page)
		}
		w := cmd.OutOrStdout()
		if len(page.Items) == 0 {
			fmt.Fprintln(w, "No issues found")
			return nil
		}
		printIssueTable(w, page.Items)
		printNormal(cmd, "\n%s\n", ui.RenderMuted(fmt.Sprintf("page %d of %d, %d issues", page.Page+1, max(page.TotalPages, 1), page.Total)))
		return nil
	},
}

func issueFilterFromFlags(cmd *cobra.Command) (types.IssueFilter, error) {
	flags := cmd.Flags()
	var f types.IssueFilter
	if s, _ := flags.GetString("status"); s != "" {
		st, err := types.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	f.OfficeID, _ = flags.GetInt64("office")
	f.ReporterID, _ = flags.GetInt64("reporter")
	f.Page, _ = flags.GetInt("page")
	f.Size, _ = flags.GetInt("size")
	sortName, _ := flags.GetString("sort")
	sort, err := types.ParseIssueSort(sortName)
	if err != nil {
		return f, err
	}
	f.Sort = sort
	if f.Page > 0 {
		f.Page-- // pages are 1-based on the command line
	}
	return f.Normalize(), nil
}

// updatedSince keeps issues updated at or after since. The backend has no
// such filter, so it applies to the fetched page only.
func updatedSince(issues []types.Issue, since time.Time) []types.Issue {
	if since.IsZero() {
		return issues
	}
	var out []types.Issue
	for _, is := range issues {
		if !is.UpdatedAt.Before(since) {
			out = append(out, is)
		}
	}
	return out
}

func printIssueTable(w io.Writer, issues []types.Issue) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tVOTES\tCOMMENTS\tOFFICE\tUPDATED\tSUMMARY")
	for _, is := range issues {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			is.ID,
			ui.RenderStatus(is.Status),
			ui.RenderVotes(is.Votes, is.HasVoted),
			is.CommentCount,
			ui.TruncateSimple(is.Office.Title, 20),
			ui.RelativeTime(is.UpdatedAt),
			ui.TruncateSimple(is.Summary, 60),
		)
	}
	_ = tw.Flush()
}

var issuesShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show an issue with its description and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("issue", args[0])
		if err != nil {
			return err
		}
		full, _ := cmd.Flags().GetBool("full")
		withComments, _ := cmd.Flags().GetBool("comments")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext()

		issue, err := a.tracker.Issue(ctx, id)
		if err != nil {
			return err
		}
		var comments []types.Comment
		if withComments {
			if comments, err = a.tracker.Comments(ctx, id); err != nil {
				return err
			}
		}

		if jsonOutput {
			if withComments {
				if comments == nil {
					comments = []types.Comment{}
				}
				return outputJSON(cmd.OutOrStdout(), struct {
					types.Issue
					Comments []types.Comment `json:"comments"`
				}{issue, comments})
			}
			return outputJSON(cmd.OutOrStdout(), issue)
		}

		w := cmd.OutOrStdout()
		printIssue(w, issue, full)
		if withComments {
			fmt.Fprintln(w)
			printComments(w, comments)
		}
		return nil
	},
}

func printIssue(w io.Writer, is types.Issue, full bool) {
	fmt.Fprintf(w, "%s %s\n", ui.RenderBold(fmt.Sprintf("#%d", is.ID)), ui.RenderBold(is.Summary))
	fmt.Fprintf(w, "%s  %s  %s\n", ui.RenderStatus(is.Status), ui.RenderVotes(is.Votes, is.HasVoted),
		ui.RenderMuted(fmt.Sprintf("%d comments", is.CommentCount)))
	fmt.Fprintf(w, "Office:   %s\n", is.Office.Title)
	fmt.Fprintf(w, "Reporter: %s\n", is.Reporter.FullName)
	fmt.Fprintf(w, "Created:  %s (%s)\n", is.CreatedAt.Local().Format("2006-01-02 15:04"), ui.RelativeTime(is.CreatedAt))
	if !is.UpdatedAt.IsZero() && !is.UpdatedAt.Equal(is.CreatedAt) {
		fmt.Fprintf(w, "Updated:  %s\n", ui.RelativeTime(is.UpdatedAt))
	}

	if text := types.PlainText(is.Description); text != "" {
		if !full {
			text = ui.TruncateLines(text, ui.DefaultMaxLines, ui.DefaultContextLines)
		}
		fmt.Fprintf(w, "\n%s\n", ui.RenderCategory("Description"))
		fmt.Fprint(w, ui.RenderMarkdown(text))
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
	}
	if len(is.Attachments) > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.RenderCategory("Attachments"))
		for _, at := range is.Attachments {
			fmt.Fprintf(w, "  %s %s\n", at.FileName, ui.RenderMuted(at.URL))
		}
	}
}

var issuesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Report a new issue",
	Long: `Report a new issue. Without --summary an interactive form is shown.

Examples:
  oit issues create --summary "Broken chair" --office 3
  oit issues create --summary "Leak" --office 3 --file photo.jpg --file more.png`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var in types.IssueInput
		in.Summary, _ = flags.GetString("summary")
		in.Description, _ = flags.GetString("description")
		in.OfficeID, _ = flags.GetInt64("office")
		paths, _ := flags.GetStringSlice("file")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext()

		if in.Summary == "" && !jsonOutput && ui.IsTerminal() {
			offices, err := a.tracker.Offices(ctx)
			if err != nil {
				return err
			}
			var ok bool
			in, paths, ok, err = runIssueForm(in, paths, offices)
			if err != nil {
				return err
			}
			if !ok {
				printNormal(cmd, "Issue creation cancelled.\n")
				return nil
			}
		}

		if err := in.Validate(); err != nil {
			return err
		}
		files, err := loadAttachments(paths)
		if err != nil {
			return err
		}

		issue, err := a.tracker.CreateIssue(ctx, in, files)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), issue)
		}
		printNormal(cmd, "%s Created issue #%d: %s\n", ui.RenderPass(ui.IconPass), issue.ID, issue.Summary)
		return nil
	},
}

// loadAttachments reads and validates files before anything is uploaded.
// Any violation fails the command.
func loadAttachments(paths []string) ([]api.Upload, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	files, err := attach.FromPaths(paths)
	if err != nil {
		return nil, err
	}
	res := attach.Validate(nil, files)
	if res.Err != nil {
		return nil, res.Err
	}
	return attach.Uploads(res.Accepted), nil
}

var issuesUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>",
	Short: "Change the summary, description, office or status of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("issue", args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext()

		current, err := a.tracker.Issue(ctx, id)
		if err != nil {
			return err
		}
		in := types.IssueInput{
			Summary:     current.Summary,
			Description: current.Description,
			OfficeID:    current.Office.ID,
		}
		if flags.Changed("summary") {
			in.Summary, _ = flags.GetString("summary")
		}
		if flags.Changed("description") {
			in.Description, _ = flags.GetString("description")
		}
		if flags.Changed("office") {
			in.OfficeID, _ = flags.GetInt64("office")
		}
		if s, _ := flags.GetString("status"); s != "" {
			if in.Status, err = types.ParseStatus(s); err != nil {
				return err
			}
		}
		paths, _ := flags.GetStringSlice("file")
		if err := in.ValidateUpdate(); err != nil {
			return err
		}
		files, err := loadAttachments(paths)
		if err != nil {
			return err
		}

		issue, err := a.tracker.UpdateIssue(ctx, id, in, files)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), issue)
		}
		printNormal(cmd, "%s Updated issue #%d\n", ui.RenderPass(ui.IconPass), issue.ID)
		return nil
	},
}

var issuesDeleteCmd = &cobra.Command{
	Use:   "delete <issue-id>",
	Short: "Delete an issue",
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

		if err := a.tracker.DeleteIssue(commandContext(), id); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{"deleted": id})
		}
		printNormal(cmd, "%s Deleted issue #%d\n", ui.RenderPass(ui.IconPass), id)
		return nil
	},
}

func init() {
	lf := issuesListCmd.Flags()
	lf.String("status", "", "Filter by status (open, planned, pending, blocked, resolved, closed)")
	lf.Int64("office", 0, "Filter by office id")
	lf.Int64("reporter", 0, "Filter by reporter id")
	lf.Int("page", 1, "Page number")
	lf.Int("size", types.DefaultPageSize, "Page size")
	lf.String("sort", string(types.SortNewest), "Sort order (newest, oldest, most-voted, most-commented)")
	lf.String("updated-since", "", `Only issues updated since this time (e.g. "2d", "yesterday", 2025-01-31)`)

	issuesShowCmd.Flags().Bool("full", false, "Show the complete description")
	issuesShowCmd.Flags().Bool("comments", false, "Include comments")

	for _, c := range []*cobra.Command{issuesCreateCmd, issuesUpdateCmd} {
		c.Flags().StringP("summary", "s", "", "Short summary")
		c.Flags().StringP("description", "d", "", "Description")
		c.Flags().Int64("office", 0, "Office id")
		c.Flags().StringSliceP("file", "f", nil, "Attach an image (png, jpeg, webp); repeatable")
	}
	issuesUpdateCmd.Flags().String("status", "", "New status")

	issuesCmd.AddCommand(issuesListCmd, issuesShowCmd, issuesCreateCmd, issuesUpdateCmd, issuesDeleteCmd)
	rootCmd.AddCommand(issuesCmd)
}

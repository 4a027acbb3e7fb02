package main

import (
	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/types"
	"github.com/officetracker/oit/internal/ui"
)

var voteCmd = &cobra.Command{
	Use:     "vote <issue-id>",
	GroupID: "issues",
	Short:   "Vote for an issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVote(cmd, args[0], true)
	},
}

var unvoteCmd = &cobra.Command{
	Use:     "unvote <issue-id>",
	GroupID: "issues",
	Short:   "Withdraw your vote from an issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVote(cmd, args[0], false)
	},
}

func runVote(cmd *cobra.Command, arg string, voted bool) error {
	id, err := parseID("issue", arg)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := commandContext()

	// Load the issue first so the optimistic change has something to patch
	// and the new count can be shown without another round trip.
	if _, err := a.tracker.Issue(ctx, id); err != nil {
		return err
	}
	if voted {
		err = a.tracker.Vote(ctx, id)
	} else {
		err = a.tracker.Unvote(ctx, id)
	}
	if err != nil {
		return err
	}

	issue, _ := cache.Lookup[types.Issue](a.store, cache.IssueKey{ID: id})
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), map[string]any{"id": id, "voted": issue.HasVoted, "votes": issue.Votes})
	}
	verb := "Voted for"
	if !voted {
		verb = "Removed vote from"
	}
	printNormal(cmd, "%s %s #%d %s\n", ui.RenderPass(ui.IconPass), verb, id, ui.RenderVotes(issue.Votes, issue.HasVoted))
	return nil
}

func init() {
	rootCmd.AddCommand(voteCmd, unvoteCmd)
}

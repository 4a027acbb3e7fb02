package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/attach"
	"github.com/officetracker/oit/internal/ui"
)

var attachCmd = &cobra.Command{
	Use:     "attach",
	GroupID: "issues",
	Short:   "Work with issue attachments",
}

var attachCheckCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Check which files would be accepted as attachments",
	Long: fmt.Sprintf(`Check files against the attachment rules without uploading anything:
png, jpeg or webp images, at most %s each, at most %d per issue, no duplicates.`,
		humanize.IBytes(attach.MaxFileSize), attach.MaxFiles),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := attach.FromPaths(args)
		if err != nil {
			return err
		}
		res := attach.Validate(nil, files)

		if jsonOutput {
			out := map[string]any{"accepted": names(res.Accepted)}
			var v *attach.Violation
			if errors.As(res.Err, &v) {
				out["violation"] = map[string]any{
					"index":   v.Index,
					"file":    v.File.Name,
					"reason":  v.Reason,
					"message": v.Error(),
				}
			}
			if err := outputJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return res.Err
		}

		w := cmd.OutOrStdout()
		for _, f := range res.Accepted {
			fmt.Fprintf(w, "%s %s %s\n", ui.RenderPass(ui.IconPass), f.Name, ui.RenderMuted(f.Type+", "+humanize.IBytes(uint64(f.Size))))
		}
		return res.Err
	},
}

func names(files []attach.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func init() {
	attachCmd.AddCommand(attachCheckCmd)
	rootCmd.AddCommand(attachCmd)
}

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Version is the current version of oit (overridden by ldflags at build time)
	Version = "0.3.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		commit := resolveCommitHash()
		if jsonOutput {
			result := map[string]string{"version": Version, "build": Build}
			if commit != "" {
				result["commit"] = commit
			}
			return outputJSON(cmd.OutOrStdout(), result)
		}
		if commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "oit version %s (%s: %s)\n", Version, Build, shortCommit(commit))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "oit version %s (%s)\n", Version, Build)
		}
		return nil
	},
}

// resolveCommitHash reads the VCS revision stamped by the go toolchain.
func resolveCommitHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func shortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func init() {
	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)
}

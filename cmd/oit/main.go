package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/config"
	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/telemetry"
)

var (
	apiURL      string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (default: config api.url or $OIT_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddGroup(&cobra.Group{ID: "issues", Title: "Working With Issues:"})
	rootCmd.AddGroup(&cobra.Group{ID: "notify", Title: "Notifications:"})
	rootCmd.AddGroup(&cobra.Group{ID: "directory", Title: "Offices & People:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})
}

var rootCmd = &cobra.Command{
	Use:           "oit",
	Short:         "oit - office issue tracker client",
	Long:          `Report, vote on and discuss office issues from the terminal, and follow notifications as they arrive.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "oit version %s (%s)\n", Version, Build)
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		applyViperOverrides(cmd)
		applyVerbosityFlags()
		if err := telemetry.Init(rootCtx, "oit", Version); err != nil {
			debug.Logf("telemetry disabled: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyViperOverrides merges config file and env values into flags that
// weren't explicitly set. Priority: flags > env > config file > defaults.
func applyViperOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		config.Set(config.KeyAPIURL, apiURL)
	} else {
		apiURL = config.GetString(config.KeyAPIURL)
	}
	if !flags.Changed("json") {
		jsonOutput = config.GetBool(config.KeyJSON)
	}
	if !flags.Changed("verbose") {
		verboseFlag = config.GetBool(config.KeyVerbose)
	}
	if !flags.Changed("quiet") {
		quietFlag = config.GetBool(config.KeyQuiet)
	}
}

// applyVerbosityFlags propagates --verbose and --quiet to the debug package.
func applyVerbosityFlags() {
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
}

func commandContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/config"
	"github.com/officetracker/oit/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{
				"file":     config.ConfigFileUsed(),
				"settings": config.AllSettings(),
			})
		}
		out, err := config.Dump()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if f := config.ConfigFileUsed(); f != "" {
			fmt.Fprintln(w, ui.RenderMuted("# "+f))
		} else {
			fmt.Fprintln(w, ui.RenderMuted("# no config file, showing defaults and environment"))
		}
		_, err = w.Write(out)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to the config file",
	Long: `Write a setting to the loaded config file, or to the user config file
($XDG_CONFIG_HOME/oit/config.yaml) when none was loaded.

Keys: api.url, api.timeout, session.cookie-name, session.cookie, csrf.cookie,
csrf.header, push.url, push.reconnect-delay, cache.stale-time, json,
verbose, quiet, login.provider`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !config.IsKnownKey(key) {
			return fmt.Errorf("unknown config key %q", key)
		}
		path := config.ConfigFileUsed()
		if path == "" {
			var err error
			if path, err = config.UserConfigPath(); err != nil {
				return err
			}
		}
		if err := config.SetFileValue(path, key, value); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]string{"key": key, "value": value, "file": path})
		}
		printNormal(cmd, "%s Set %s in %s\n", ui.RenderPass(ui.IconPass), key, path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/config"
	"github.com/officetracker/oit/internal/session"
	"github.com/officetracker/oit/internal/ui"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	GroupID: "setup",
	Short:   "Check, start or end your session",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the configured session is signed in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		mgr := session.NewManager(a.client, nil, a.store)
		status, err := mgr.Refresh(commandContext())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), status)
		}
		w := cmd.OutOrStdout()
		if !status.Authenticated {
			fmt.Fprintf(w, "%s Not signed in to %s\n", ui.RenderWarn(ui.IconWarn), a.client.BaseURL())
			fmt.Fprintln(w, "Run 'oit auth login' to sign in.")
			return nil
		}
		fmt.Fprintf(w, "%s Signed in to %s as %s", ui.RenderPass(ui.IconPass), a.client.BaseURL(), status.User.FullName)
		if status.User.Email != "" {
			fmt.Fprintf(w, " <%s>", status.User.Email)
		}
		fmt.Fprintln(w)
		return nil
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Print the sign-in URL",
	Long: `Print the identity provider URL to open in a browser. After signing in,
copy the session cookie into the config:

  oit config set session.cookie <value>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		if provider == "" {
			provider = config.GetString(config.KeyLoginProvider)
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		u := a.client.LoginURL(provider)
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]string{"url": u, "provider": provider})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser to sign in:\n\n  %s\n\n", u)
		printNormal(cmd, "Then store the %s cookie with 'oit config set %s <value>'.\n",
			config.GetString(config.KeySessionCookieName), config.KeySessionCookie)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session on the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		mgr := session.NewManager(a.client, nil, a.store)
		if err := mgr.Logout(commandContext()); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]bool{"logged_out": true})
		}
		printNormal(cmd, "%s Signed out\n", ui.RenderPass(ui.IconPass))
		if config.GetString(config.KeySessionCookie) != "" {
			printNormal(cmd, "%s\n", ui.RenderMuted("The session.cookie setting is now stale; remove it from your config."))
		}
		return nil
	},
}

func init() {
	authLoginCmd.Flags().String("provider", "", "Identity provider (default: config login.provider)")
	authCmd.AddCommand(authStatusCmd, authLoginCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

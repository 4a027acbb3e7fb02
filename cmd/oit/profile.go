package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/types"
	"github.com/officetracker/oit/internal/ui"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	GroupID: "directory",
	Short:   "Show or edit your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		p, err := a.tracker.Profile(commandContext())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), p)
		}
		printProfile(cmd, p)
		return nil
	},
}

func printProfile(cmd *cobra.Command, p types.Profile) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", ui.RenderBold(p.FullName))
	fmt.Fprintf(w, "Email:    %s\n", p.Email)
	if p.Position != "" {
		fmt.Fprintf(w, "Position: %s\n", p.Position)
	}
	if p.Office != nil {
		fmt.Fprintf(w, "Office:   %s\n", p.Office.Title)
	}
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change your name, position or office",
	Long: `Change your name, position or office. Without flags an interactive
form is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext()

		current, err := a.tracker.Profile(ctx)
		if err != nil {
			return err
		}
		u := types.ProfileUpdate{FullName: current.FullName, Position: current.Position}
		if current.Office != nil {
			u.OfficeID = current.Office.ID
		}

		flags := cmd.Flags()
		edited := flags.Changed("name") || flags.Changed("position") || flags.Changed("office")
		if !edited && !jsonOutput && ui.IsTerminal() {
			offices, err := a.tracker.Offices(ctx)
			if err != nil {
				return err
			}
			ok, err := runProfileForm(&u, offices)
			if err != nil || !ok {
				return err
			}
		}
		if flags.Changed("name") {
			u.FullName, _ = flags.GetString("name")
		}
		if flags.Changed("position") {
			u.Position, _ = flags.GetString("position")
		}
		if flags.Changed("office") {
			u.OfficeID, _ = flags.GetInt64("office")
		}

		p, err := a.tracker.UpdateProfile(ctx, u)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), p)
		}
		printNormal(cmd, "%s Profile updated\n", ui.RenderPass(ui.IconPass))
		return nil
	},
}

func runProfileForm(u *types.ProfileUpdate, offices []types.Office) (bool, error) {
	options := []huh.Option[int64]{huh.NewOption("(none)", int64(0))}
	for _, o := range offices {
		options = append(options, huh.NewOption(o.Title, o.ID))
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Name").Value(&u.FullName).
			Validate(func(s string) error { return types.ValidateProfile(types.ProfileUpdate{FullName: s}) }),
		huh.NewInput().Title("Position").Value(&u.Position),
		huh.NewSelect[int64]().Title("Office").Options(options...).Value(&u.OfficeID),
	)).WithTheme(huh.ThemeDracula())
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, fmt.Errorf("form error: %w", err)
	}
	return true, nil
}

func init() {
	profileUpdateCmd.Flags().String("name", "", "Full name")
	profileUpdateCmd.Flags().String("position", "", "Job title")
	profileUpdateCmd.Flags().Int64("office", 0, "Office id")
	profileCmd.AddCommand(profileShowCmd, profileUpdateCmd)
	rootCmd.AddCommand(profileCmd)
}

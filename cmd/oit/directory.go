package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/types"
	"github.com/officetracker/oit/internal/ui"
)

var officesCmd = &cobra.Command{
	Use:     "offices",
	GroupID: "directory",
	Short:   "List and manage offices",
}

var officesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List offices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		offices, err := a.tracker.Offices(commandContext())
		if err != nil {
			return err
		}
		if offices == nil {
			offices = []types.Office{}
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), offices)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCOUNTRY\tADDRESS")
		for _, o := range offices {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID, o.Title, o.Country.Name, o.Address)
		}
		return tw.Flush()
	},
}

func officeRequestFromFlags(cmd *cobra.Command) types.OfficeRequest {
	var req types.OfficeRequest
	req.Title, _ = cmd.Flags().GetString("title")
	req.Address, _ = cmd.Flags().GetString("address")
	req.CountryID, _ = cmd.Flags().GetInt64("country")
	return req
}

var officesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an office",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := officeRequestFromFlags(cmd)
		if err := types.ValidateOffice(req); err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		office, err := a.tracker.CreateOffice(commandContext(), req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), office)
		}
		printNormal(cmd, "%s Created office %d: %s\n", ui.RenderPass(ui.IconPass), office.ID, office.Title)
		return nil
	},
}

var officesUpdateCmd = &cobra.Command{
	Use:   "update <office-id>",
	Short: "Update an office",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("office", args[0])
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext()

		offices, err := a.tracker.Offices(ctx)
		if err != nil {
			return err
		}
		var req types.OfficeRequest
		found := false
		for _, o := range offices {
			if o.ID == id {
				req = types.OfficeRequest{Title: o.Title, Address: o.Address, CountryID: o.Country.ID}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("office %d not found", id)
		}
		changed := officeRequestFromFlags(cmd)
		if cmd.Flags().Changed("title") {
			req.Title = changed.Title
		}
		if cmd.Flags().Changed("address") {
			req.Address = changed.Address
		}
		if cmd.Flags().Changed("country") {
			req.CountryID = changed.CountryID
		}

		office, err := a.tracker.UpdateOffice(ctx, id, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), office)
		}
		printNormal(cmd, "%s Updated office %d\n", ui.RenderPass(ui.IconPass), office.ID)
		return nil
	},
}

var countriesCmd = &cobra.Command{
	Use:     "countries",
	GroupID: "directory",
	Short:   "List countries offices can belong to",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		countries, err := a.tracker.Countries(commandContext())
		if err != nil {
			return err
		}
		if countries == nil {
			countries = []types.Country{}
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), countries)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCODE\tNAME")
		for _, c := range countries {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Code, c.Name)
		}
		return tw.Flush()
	},
}

var usersCmd = &cobra.Command{
	Use:     "users",
	GroupID: "directory",
	Short:   "List users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		users, err := a.tracker.Users(commandContext())
		if err != nil {
			return err
		}
		if users == nil {
			users = []types.User{}
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), users)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPOSITION")
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, u.Position)
		}
		return tw.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{officesCreateCmd, officesUpdateCmd} {
		c.Flags().String("title", "", "Office title")
		c.Flags().String("address", "", "Street address")
		c.Flags().Int64("country", 0, "Country id (see 'oit countries')")
	}
	officesCmd.AddCommand(officesListCmd, officesCreateCmd, officesUpdateCmd)
	rootCmd.AddCommand(officesCmd, countriesCmd, usersCmd)
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/officetracker/oit/internal/attach"
	"github.com/officetracker/oit/internal/types"
)

// runIssueForm asks for the fields of a new issue. ok is false when the
// user cancelled.
func runIssueForm(in types.IssueInput, paths []string, offices []types.Office) (_ types.IssueInput, _ []string, ok bool, err error) {
	officeOptions := make([]huh.Option[int64], 0, len(offices))
	for _, o := range offices {
		label := o.Title
		if o.Country.Name != "" {
			label = fmt.Sprintf("%s (%s)", o.Title, o.Country.Name)
		}
		officeOptions = append(officeOptions, huh.NewOption(label, o.ID))
	}
	if len(officeOptions) == 0 {
		return in, paths, false, errors.New("no offices available; create one with 'oit offices create'")
	}
	if in.OfficeID == 0 {
		in.OfficeID = offices[0].ID
	}
	filesInput := strings.Join(paths, ", ")
	confirm := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Summary").
				Description("What is wrong? (required)").
				Placeholder("e.g., Coffee machine on floor 3 is leaking").
				Value(&in.Summary).
				Validate(func(s string) error {
					return (types.IssueInput{Summary: s}).ValidateUpdate()
				}),

			huh.NewText().
				Title("Description").
				Description("Where exactly, since when, anything that helps").
				CharLimit(types.MaxDescriptionLength).
				Value(&in.Description),

			huh.NewSelect[int64]().
				Title("Office").
				Options(officeOptions...).
				Value(&in.OfficeID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Photos").
				Description(fmt.Sprintf("Comma-separated image paths, at most %d (optional)", attach.MaxFiles)).
				Value(&filesInput).
				Validate(func(s string) error {
					files, err := attach.FromPaths(splitList(s))
					if err != nil {
						return err
					}
					return attach.Validate(nil, files).Err
				}),

			huh.NewConfirm().
				Title("Report this issue?").
				Affirmative("Report").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return in, paths, false, nil
		}
		return in, paths, false, fmt.Errorf("form error: %w", err)
	}
	return in, splitList(filesInput), confirm, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

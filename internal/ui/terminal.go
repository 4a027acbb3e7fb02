package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func init() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions, falling
// back to whether stdout is a terminal.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if f := os.Getenv("CLICOLOR_FORCE"); f != "" && f != "0" {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether decorative icons should be printed.
// OIT_NO_EMOJI turns them off.
func ShouldUseEmoji() bool {
	if os.Getenv("OIT_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// HasDarkBackground asks the terminal for its background colour.
func HasDarkBackground() bool {
	return termenv.HasDarkBackground()
}

// Width returns the terminal width, or fallback when stdout is not a
// terminal.
func Width(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}

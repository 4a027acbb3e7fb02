// Package ui provides terminal styling for oit CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/officetracker/oit/internal/types"
)

// Ayu theme color palette
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	BoldStyle   = lipgloss.NewStyle().Bold(true)
)

// CategoryStyle for section headers - bold with accent color
var CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

const (
	IconPass    = "✓"
	IconWarn    = "⚠"
	IconFail    = "✗"
	IconInfo    = "ℹ"
	IconVoted   = "▲"
	IconNotVote = "△"
	IconUnread  = "●"
	IconRead    = "○"
	IconPending = "…"
)

const SeparatorLight = "──────────────────────────────────────────"

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }
func RenderBold(s string) string   { return BoldStyle.Render(s) }

// RenderCategory renders a category header in uppercase with accent color
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// StatusStyle picks the colour for an issue status: green once the issue
// is done, yellow while it waits on someone, accent while it is worked on.
func StatusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusResolved, types.StatusClosed:
		return PassStyle
	case types.StatusPending, types.StatusBlocked:
		return WarnStyle
	case types.StatusInProgress:
		return AccentStyle
	default:
		return lipgloss.NewStyle()
	}
}

// RenderStatus renders the human label of s in its status colour.
func RenderStatus(s types.Status) string {
	return StatusStyle(s).Render(s.Label())
}

// RenderVotes renders the vote count with a filled marker when the viewer
// has voted.
func RenderVotes(count int, voted bool) string {
	if voted {
		return AccentStyle.Render(IconVoted + " " + itoa(count))
	}
	return MutedStyle.Render(IconNotVote) + " " + itoa(count)
}

// RenderReadMarker renders the unread dot used in notification lists.
func RenderReadMarker(read bool) string {
	if read {
		return MutedStyle.Render(IconRead)
	}
	return AccentStyle.Render(IconUnread)
}

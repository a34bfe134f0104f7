// Package tui implements the Bubble Tea dashboard for shoppulse.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/shoppulse/internal/live"
)

// Tokyo Night color palette.
var (
	colorGreen  = lipgloss.Color("#9ece6a") // green
	colorYellow = lipgloss.Color("#e0af68") // yellow
	colorRed    = lipgloss.Color("#f38ba8") // red
	colorBlue   = lipgloss.Color("#7aa2f7") // blue
	colorGray   = lipgloss.Color("#565f89") // comment
	colorWhite  = lipgloss.Color("#c0caf5") // foreground
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			PaddingLeft(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			MarginTop(1).
			PaddingLeft(1)

	// KPI card with rounded border.
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1).
			MarginRight(1)

	cardLabelStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	cardValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	// Selected item style (matches border color).
	selectedStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	normalStyle = lipgloss.NewStyle()

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	// Selected border style for left accent bar.
	selectedBorderStyle = lipgloss.NewStyle().
				Foreground(colorBlue)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorBlue)
)

// Icons and symbols.
const (
	iconDot    = "•"
	iconBar    = "█"
	iconAccent = "▌"
)

// statusStyle colors the connection status indicator.
func statusStyle(s live.Status) lipgloss.Style {
	switch s {
	case live.StatusConnected:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case live.StatusConnecting:
		return lipgloss.NewStyle().Foreground(colorYellow)
	case live.StatusError:
		return errorStyle
	default:
		return mutedStyle
	}
}

// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
)

// Banner ASCII art for the header.
const Banner = `
 ╔═╗╦ ╦╔═╗╔═╗╔═╗╦ ╦╦  ╔═╗╔═╗
 ╚═╗╠═╣║ ║╠═╝╠═╝║ ║║  ╚═╗║╣
 ╚═╝╩ ╩╚═╝╩  ╩  ╚═╝╩═╝╚═╝╚═╝`

// BannerStyle styles the ASCII art banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// LabelStyle styles the key column of startup summaries.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(10)

// ValueStyle styles the value column of startup summaries.
var ValueStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// Summary renders the banner followed by aligned label/value rows.
func Summary(rows ...[2]string) string {
	out := BannerStyle.Render(Banner) + "\n\n"
	for _, r := range rows {
		out += " " + LabelStyle.Render(r[0]) + ValueStyle.Render(r[1]) + "\n"
	}
	return out
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/shoppulse/internal/core/feed"
	"github.com/hay-kot/shoppulse/internal/live"
)

const (
	defaultWidth = 80
	barWidth     = 24
)

// View renders the dashboard.
func (m Model) View() string {
	sections := []string{m.renderHeader()}

	switch {
	case m.status == live.StatusError:
		sections = append(sections, m.renderError())
	case !m.hasData:
		sections = append(sections, "\n "+m.spinner.View()+" "+mutedStyle.Render("Waiting for the first update..."))
	default:
		sections = append(sections,
			m.renderKPIs(),
			m.renderStatuses(),
			m.renderWorkload(),
			m.renderActivity(),
		)
	}

	sections = append(sections, "", " "+m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	status := statusStyle(m.status).Render(iconDot + " " + string(m.status))
	if m.status == live.StatusConnecting {
		status = m.spinner.View() + " " + statusStyle(m.status).Render(string(m.status))
	}

	left := titleStyle.Render("Shop Pulse")
	if m.opts.Source != "" {
		left += mutedStyle.Render("  " + m.opts.Source)
	}

	right := status
	if m.hasData {
		right = mutedStyle.Render("updated "+m.snap.LastUpdated.Local().Format("15:04:05")+"  ") + status
	}

	w := m.width
	if w == 0 {
		w = defaultWidth
	}
	gap := max(w-lipgloss.Width(left)-lipgloss.Width(right)-1, 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderError() string {
	msg := "connection lost"
	if m.err != nil {
		msg = m.err.Error()
	}
	return "\n" + errorStyle.Render(" "+iconDot+" "+msg) + "\n" +
		mutedStyle.Render("   press r to reconnect")
}

func (m Model) renderKPIs() string {
	k := m.snap.KPI
	cards := []string{
		card("Active", fmt.Sprintf("%d", k.ActiveTasks)),
		card("Completed", fmt.Sprintf("%d", k.CompletedToday)),
		card("Pending $", fmt.Sprintf("%d", k.PendingPayments)),
		card("Revenue", fmt.Sprintf("$%.2f", k.RevenueToday)),
		card("Avg repair", fmt.Sprintf("%.1fh", k.AverageRepairHours)),
	}
	return "\n" + lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func card(label, value string) string {
	return cardStyle.Render(cardLabelStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func (m Model) renderStatuses() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Task status"))

	peak := 1
	for _, ts := range m.snap.TaskStatuses {
		peak = max(peak, ts.Count)
	}

	for _, ts := range m.snap.TaskStatuses {
		n := ts.Count * barWidth / peak
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(ts.Color)).Render(strings.Repeat(iconBar, n))
		fmt.Fprintf(&b, "\n  %-15s %s %s", ts.Status, bar, mutedStyle.Render(fmt.Sprintf("%d", ts.Count)))
	}
	return b.String()
}

func (m Model) renderWorkload() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Technicians"))

	for _, tw := range m.snap.TechnicianWorkload {
		fmt.Fprintf(&b, "\n  %-15s %s  %s",
			tw.Name,
			normalStyle.Render(fmt.Sprintf("%2d active", tw.ActiveTasks)),
			mutedStyle.Render(fmt.Sprintf("%2d done today", tw.CompletedToday)),
		)
	}
	return b.String()
}

func (m Model) renderActivity() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Recent activity"))

	acts := m.snap.RecentActivities
	if len(acts) == 0 {
		b.WriteString("\n  " + mutedStyle.Render("No activity yet"))
		return b.String()
	}

	for i, act := range acts {
		b.WriteString("\n")
		b.WriteString(m.renderActivityLine(act, i == m.selected))
	}

	if act, ok := m.Selected(); ok {
		b.WriteString("\n\n  " + mutedStyle.Render(fmt.Sprintf("#%d  %s  %s", act.ID, act.Kind, act.OccurredLabel)))
	}
	return b.String()
}

func (m Model) renderActivityLine(act feed.Activity, selected bool) string {
	marker := lipgloss.NewStyle().Foreground(lipgloss.Color(act.Kind.Hex())).Render(iconDot)
	text := fmt.Sprintf("%-28s %s", act.Message, act.Customer)

	if selected {
		return selectedBorderStyle.Render(iconAccent) + " " + marker + " " + selectedStyle.Render(text)
	}
	return "  " + marker + " " + normalStyle.Render(text)
}

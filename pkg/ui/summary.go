package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"placeharvest/pkg/harvest"
)

var (
	accent = lipgloss.Color("#00D7D7")
	good   = lipgloss.Color("#5FD75F")
	warn   = lipgloss.Color("#FFD75F")
	bad    = lipgloss.Color("#FF5F5F")
	muted  = lipgloss.Color("#8A8A8A")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(muted).Width(12)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

// RenderSummary draws the end-of-run panel
func RenderSummary(s harvest.RunSummary) string {
	status := lipgloss.NewStyle().Foreground(good).Render(string(s.Terminal))
	if s.Fatal {
		status = lipgloss.NewStyle().Foreground(bad).Render("aborted: " + s.Reason)
	}

	rows := [][2]string{
		{"seed", s.SeedURL},
		{"status", status},
		{"emitted", QuotaBar(s.Emitted, s.Quota, 24)},
		{"discovered", fmt.Sprint(s.Discovered)},
		{"skipped", fmt.Sprintf("%d seen, %d unresolved, %d failed", s.Skipped, s.Unresolved, s.Failed)},
		{"cursor", fmt.Sprintf("%d -> %d", s.StartCursor, s.EndCursor)},
		{"duration", s.Duration.Round(time.Millisecond).String()},
	}
	if s.Fallbacks > 0 {
		rows = append(rows, [2]string{"fallbacks", lipgloss.NewStyle().Foreground(warn).Render(fmt.Sprint(s.Fallbacks))})
	}
	if s.AutoReset {
		rows = append(rows, [2]string{"note", "listing exhausted, cursor reset for the next run"})
	}
	if s.Fatal && s.Error != "" {
		rows = append(rows, [2]string{"error", s.Error})
	}

	lines := []string{titleStyle.Render("Run summary")}
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r[0]), valueStyle.Render(r[1])))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// NotificationText is the one-line message used for desktop notifications
func NotificationText(s harvest.RunSummary) (title, message string) {
	if s.Fatal {
		return "placeharvest aborted", fmt.Sprintf("%s after %d records", s.Reason, s.Emitted)
	}
	return "placeharvest finished", fmt.Sprintf("%d of %d records (%s)", s.Emitted, s.Quota, s.Terminal)
}

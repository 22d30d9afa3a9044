// Package dashboard provides the fleet summary row shown above every page.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/acqdash/console/internal/api"
	"github.com/acqdash/console/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the dashboard state.
type Model struct {
	Width  int
	counts api.StatusMap
}

// New creates a dashboard model.
func New() Model {
	return Model{counts: make(api.StatusMap)}
}

// SetCounts replaces the per-status device counts.
func (m *Model) SetCounts(counts api.StatusMap) {
	m.counts = make(api.StatusMap, len(counts))
	for k, v := range counts {
		m.counts[k] = v
	}
}

// Total is the number of devices across all statuses.
func (m Model) Total() int {
	n := 0
	for _, v := range m.counts {
		n += v
	}
	return n
}

// View renders the stats row with a fleet composition bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	statStyle := lipgloss.NewStyle().Padding(0, 1)
	stats := []string{
		statStyle.Foreground(theme.ColorBright).Render(
			fmt.Sprintf("Fleet: %s", formatCount(m.Total()))),
	}
	for _, s := range api.AllDeviceStatuses {
		stats = append(stats, statStyle.Foreground(theme.StatusColor(string(s))).Render(
			fmt.Sprintf("%s: %s", titleCase(string(s)), formatCount(m.counts[s]))))
	}

	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))
	barWidth := max(10, width-lipgloss.Width(content)-8)
	content += "  " + m.renderFleetBar(barWidth)

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

// renderFleetBar draws one segment per status, proportional to its count.
func (m Model) renderFleetBar(barWidth int) string {
	total := m.Total()
	if total == 0 {
		return lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("░", barWidth))
	}

	var b strings.Builder
	used := 0
	for i, s := range api.AllDeviceStatuses {
		n := m.counts[s] * barWidth / total
		if i == len(api.AllDeviceStatuses)-1 {
			n = barWidth - used
		}
		used += n
		b.WriteString(lipgloss.NewStyle().Foreground(theme.StatusColor(string(s))).Render(strings.Repeat("█", n)))
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatCount formats large numbers with K/M suffixes.
func formatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

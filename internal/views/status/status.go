package status

import (
	"fmt"
	"strings"

	"github.com/acqdash/console/internal/api"
	"github.com/acqdash/console/internal/telemetry"
	"github.com/acqdash/console/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// RenderStats describes the active page's last render.
type RenderStats struct {
	Rendered      int
	Total         int
	Subscriptions int
}

// Model holds the status bar state.
type Model struct {
	Connected bool
	Devices   int
	Accounts  int
	Scenarios int
	Counts    api.StatusMap
	RSS       uint64
	Render    RenderStats
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{
		Counts: make(api.StatusMap),
	}
}

// SetTotals updates the entity totals from a server greeting.
func (m *Model) SetTotals(devices, accounts, scenarios int) {
	m.Devices = devices
	m.Accounts = accounts
	m.Scenarios = scenarios
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Live")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	totals := fmt.Sprintf("%d devices  %d accounts  %d scenarios",
		m.Devices, m.Accounts, m.Scenarios)

	var statusParts []string
	for _, s := range api.AllDeviceStatuses {
		n, ok := m.Counts[s]
		if !ok {
			continue
		}
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(theme.StatusColor(string(s))).Render(
			fmt.Sprintf("%s %d", theme.StatusGlyph(string(s)), n),
		))
	}
	statusStr := strings.Join(statusParts, " ")

	render := theme.StyleDimmed.Render(fmt.Sprintf("render %d/%d  obs %d",
		m.Render.Rendered, m.Render.Total, m.Render.Subscriptions))

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + totals
	if statusStr != "" {
		content += sep + statusStr
	}
	content += sep + render
	if m.RSS > 0 {
		content += sep + theme.StyleDimmed.Render("rss "+telemetry.FormatBytes(m.RSS))
	}

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}

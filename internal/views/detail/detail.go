// Package detail renders the device info flyout overlay.
package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/acqdash/console/internal/api"
	"github.com/acqdash/console/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

const (
	panelWidth = 64
	barWidth   = 20
	labelWidth = 14
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright)

	styleFooter = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed)

	styleSectionHeader = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorDimmed)
)

// Model holds the state for the detail overlay.
type Model struct {
	Device   *api.Device
	Accounts []api.Account
	Now      func() time.Time
}

// New creates a detail model for the given device. accounts may include
// accounts bound to other devices; only this device's are shown.
func New(d *api.Device, accounts []api.Account) Model {
	m := Model{Device: d, Now: time.Now}
	if d == nil {
		return m
	}
	for _, a := range accounts {
		if a.DeviceID == d.ID {
			m.Accounts = append(m.Accounts, a)
		}
	}
	return m
}

// View renders the detail panel. Returns an empty string if no device is set.
func (m Model) View() string {
	if m.Device == nil {
		return ""
	}
	return stylePanel.Width(panelWidth).Render(m.renderInner(m.Device))
}

func (m Model) renderInner(d *api.Device) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Device: "+DisplayName(d)) + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	writeRow(&b, "ID", truncate(d.ID, 36))
	writeRow(&b, "Model", d.Model)
	if d.OSVersion != "" {
		writeRow(&b, "OS", d.OSVersion)
	}
	writeRow(&b, "Group", d.Group)

	status := string(d.Status)
	writeRow(&b, "Status", lipgloss.NewStyle().Foreground(theme.StatusColor(status)).
		Render(theme.StatusGlyph(status)+" "+status))
	if d.Task != "" {
		writeRow(&b, "Task", d.Task)
	}

	b.WriteString("\n")

	pct := float64(d.Battery) / 100
	writeRow(&b, "Battery", renderBar(pct, barWidth, theme.BatteryColor(d.Battery))+fmt.Sprintf(" %d%%", d.Battery))
	if !d.LastSeenAt.IsZero() {
		writeRow(&b, "Last Seen", formatAge(m.Now().Sub(d.LastSeenAt)))
	}

	if len(m.Accounts) > 0 {
		b.WriteString("\n")
		b.WriteString(styleSectionHeader.Render(fmt.Sprintf("Accounts (%d)", len(m.Accounts))) + "\n")
		for _, a := range m.Accounts {
			b.WriteString(renderAccount(a) + "\n")
		}
	} else if d.Accounts > 0 {
		b.WriteString("\n")
		writeRow(&b, "Accounts", fmt.Sprintf("%d (not loaded)", d.Accounts))
	}

	b.WriteString("\n")
	b.WriteString(styleFooter.Render("[esc] close"))

	return b.String()
}

func renderAccount(a api.Account) string {
	handle := a.Handle
	if len(handle) > 22 {
		handle = handle[:21] + "…"
	}
	line := fmt.Sprintf("  %s %-22s %8s followers", theme.PlatformBadge(string(a.Platform)), handle, formatCount(a.Followers))
	if a.Banned {
		line += lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("  banned")
	}
	return line
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label+":") + styleValue.Render(value) + "\n")
}

func renderBar(pct float64, width int, color lipgloss.Color) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	empty := width - filled
	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}

// DisplayName returns a human-readable label for a device, preferring Name,
// then a truncated ID.
func DisplayName(d *api.Device) string {
	if d.Name != "" {
		return d.Name
	}
	if len(d.ID) >= 8 {
		return d.ID[:8]
	}
	return d.ID
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func formatCount(n int) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds ago", int(d.Minutes()), int(d.Seconds())%60)
	default:
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm ago", h, m)
	}
}

// Package theme provides the Lip Gloss color palette and reusable styles
// for the acquisition console. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Device status colors.
var (
	ColorOnline  = lipgloss.Color("#22c55e")
	ColorBusy    = lipgloss.Color("#2563eb")
	ColorOffline = lipgloss.Color("#4b5563")
	ColorError   = lipgloss.Color("#dc2626")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// Platform badge colors.
var (
	ColorTikTok    = lipgloss.Color("#ec4899")
	ColorInstagram = lipgloss.Color("#a855f7")
	ColorYouTube   = lipgloss.Color("#ef4444")
	ColorX         = lipgloss.Color("#e5e7eb")
)

// Battery bar thresholds.
var (
	ColorBatteryLow  = lipgloss.Color("#dc2626") // <20%
	ColorBatteryMid  = lipgloss.Color("#d97706") // 20-50%
	ColorBatteryHigh = lipgloss.Color("#22c55e") // >50%
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorAccent  = lipgloss.Color("#06b6d4")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StatusColor returns the color for a device status string.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "online":
		return ColorOnline
	case "busy":
		return ColorBusy
	case "offline":
		return ColorOffline
	case "error":
		return ColorError
	default:
		return ColorDefault
	}
}

// StatusGlyph returns a Unicode glyph representing a device status.
func StatusGlyph(status string) string {
	switch status {
	case "online":
		return "●"
	case "busy":
		return "⚙"
	case "offline":
		return "○"
	case "error":
		return "✗"
	default:
		return "·"
	}
}

// PlatformBadge returns a colored badge string for a platform name.
func PlatformBadge(platform string) string {
	switch strings.ToLower(platform) {
	case "tiktok":
		return lipgloss.NewStyle().Foreground(ColorTikTok).Render("[TT]")
	case "instagram":
		return lipgloss.NewStyle().Foreground(ColorInstagram).Render("[IG]")
	case "youtube":
		return lipgloss.NewStyle().Foreground(ColorYouTube).Render("[YT]")
	case "x":
		return lipgloss.NewStyle().Foreground(ColorX).Render("[X] ")
	default:
		return lipgloss.NewStyle().Foreground(ColorDefault).Render("[??]")
	}
}

// BatteryColor returns the color for a battery percentage.
func BatteryColor(pct int) lipgloss.Color {
	switch {
	case pct < 20:
		return ColorBatteryLow
	case pct <= 50:
		return ColorBatteryMid
	default:
		return ColorBatteryHigh
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright).
		Background(lipgloss.Color("#1f2937"))

	StyleTabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBg).
		Background(ColorAccent).
		Padding(0, 1)

	StyleTabInactive = lipgloss.NewStyle().
		Foreground(ColorDimmed).
		Padding(0, 1)
)

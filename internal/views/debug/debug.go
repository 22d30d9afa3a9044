// Package debug provides a scrollable debug event log overlay.
package debug

import (
	"fmt"
	"time"

	"github.com/acqdash/console/internal/theme"
	"github.com/acqdash/console/internal/viewport"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxEntries    = 2000
	defaultHeight = 10
)

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string // "ws", "nav", "err", etc.
	Message string
}

// Model holds debug log state. Only the visible entries are rendered, so
// the buffer can be much longer than the panel.
type Model struct {
	entries  []Entry
	list     *viewport.VirtualList[Entry]
	scroller *viewport.Scroller
	follow   bool
	width    int
	height   int
}

// New creates an empty debug model.
func New() *Model {
	m := &Model{
		scroller: viewport.NewScroller(),
		follow:   true,
		height:   defaultHeight,
	}
	m.list = viewport.NewVirtualList(1, defaultHeight, m.renderEntry)
	m.list.SetOverscan(2)
	m.list.SetEmptyState(theme.StyleDimmed.Render("  No events recorded yet."))
	m.list.Mount(m.scroller)
	return m
}

// Entries returns the buffered entries, oldest first.
func (m *Model) Entries() []Entry {
	return m.entries
}

// Add appends a log entry and caps the buffer. A log scrolled to the bottom
// stays there.
func (m *Model) Add(kind, message string) {
	m.entries = append(m.entries, Entry{
		Time:    time.Now(),
		Kind:    kind,
		Message: message,
	})
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	m.list.SetItems(m.entries)
	m.sync()
}

// Addf is Add with formatting.
func (m *Model) Addf(kind, format string, args ...any) {
	m.Add(kind, fmt.Sprintf(format, args...))
}

// SetSize sets the overlay's outer size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(max(20, width-8), m.visibleLines())
	m.sync()
}

// Offset is the number of entries below the viewport.
func (m *Model) Offset() int {
	return m.scroller.MaxTop() - m.scroller.Top()
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.scroller.ScrollBy(-n)
	m.follow = m.Offset() == 0
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.scroller.ScrollBy(n)
	m.follow = m.Offset() == 0
}

// Scroller exposes the log's scroll container.
func (m *Model) Scroller() *viewport.Scroller {
	return m.scroller
}

func (m *Model) visibleLines() int {
	if m.height == 0 {
		return defaultHeight
	}
	return max(3, m.height-8)
}

// sync resizes the scroller to the list. The list has no load-more hook, so
// the scroll commands are always nil.
func (m *Model) sync() {
	m.scroller.SetGeometry(m.list.TotalHeight(), m.list.Height())
	if m.follow {
		m.scroller.End()
	}
}

// panelStyle returns the shared border style for the debug overlay.
func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the debug log as an overlay panel.
func (m *Model) View() string {
	innerW := max(20, m.width-4)

	title := theme.StyleHeader.Render(" DEBUG LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(m.entries)))

	scrollIndicator := ""
	if off := m.Offset(); off > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", off))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.list.View(), scrollIndicator, help)
	return panelStyle(innerW).Render(content)
}

func (m *Model) renderEntry(e Entry, _ int) string {
	tsStr := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
	kindStr := lipgloss.NewStyle().Foreground(kindToColor(e.Kind)).Width(4).Render(e.Kind)
	return fmt.Sprintf("%s %s %s", tsStr, kindStr, e.Message)
}

func kindToColor(kind string) lipgloss.Color {
	switch kind {
	case "ws":
		return theme.ColorBusy
	case "err":
		return theme.ColorError
	case "nav":
		return theme.ColorAccent
	case "cfg":
		return theme.ColorWarning
	default:
		return theme.ColorDimmed
	}
}

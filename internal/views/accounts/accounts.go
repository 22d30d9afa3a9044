// Package accounts lists linked social accounts, one row each.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/acqdash/console/internal/api"
	"github.com/acqdash/console/internal/telemetry"
	"github.com/acqdash/console/internal/theme"
	"github.com/acqdash/console/internal/viewport"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

const (
	chrome   = 2
	listName = "accounts"
)

// Source returns every linked account.
type Source interface {
	ListAccounts(ctx context.Context) ([]api.Account, error)
}

// LoadedMsg delivers the account list.
type LoadedMsg struct {
	Gen      int
	Accounts []api.Account
	Err      error
}

// Model is the accounts page.
type Model struct {
	ctx     context.Context
	src     Source
	metrics *telemetry.Metrics
	log     zerolog.Logger

	list     *viewport.VirtualList[api.Account]
	scroller *viewport.Scroller
	spinner  spinner.Model

	all      []api.Account
	filter   int // index into api.AllPlatforms, -1 for all
	selected int
	loading  bool
	gen      int
	err      error
}

// New creates the page. Nothing is fetched until Init.
func New(ctx context.Context, src Source, overscan int, metrics *telemetry.Metrics, log zerolog.Logger) *Model {
	m := &Model{
		ctx:      ctx,
		src:      src,
		metrics:  metrics,
		log:      log.With().Str("component", "accounts").Logger(),
		scroller: viewport.NewScroller(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		filter:   -1,
	}
	m.list = viewport.NewVirtualList(1, 0, m.renderItem)
	m.list.SetOverscan(overscan)
	m.list.SetEmptyState(theme.StyleDimmed.Render("No accounts linked yet"))
	m.list.Mount(m.scroller)
	return m
}

func (m *Model) Title() string { return "Accounts" }

func (m *Model) Init() tea.Cmd {
	return m.Reload()
}

// Reload refetches the full account list.
func (m *Model) Reload() tea.Cmd {
	m.gen++
	m.loading = true
	m.err = nil

	ctx, src, gen := m.ctx, m.src, m.gen
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		accts, err := src.ListAccounts(ctx)
		return LoadedMsg{Gen: gen, Accounts: accts, Err: err}
	})
}

// SetTuning applies overscan. The account list is never paged.
func (m *Model) SetTuning(overscan, _ int) {
	m.list.SetOverscan(overscan)
}

func (m *Model) SetSize(width, height int) tea.Cmd {
	m.list.SetSize(width, max(1, height-chrome))
	return m.syncGeometry()
}

func (m *Model) SetActive(bool) tea.Cmd { return nil }

func (m *Model) Scroller() *viewport.Scroller {
	return m.scroller
}

func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Gen != m.gen {
			return nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			m.log.Error().Err(msg.Err).Msg("account list failed")
			return nil
		}
		m.all = msg.Accounts
		m.log.Debug().Int("accounts", len(m.all)).Msg("accounts loaded")
		return m.applyFilter()

	case spinner.TickMsg:
		if !m.loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}
	return nil
}

// All returns every loaded account regardless of the filter.
func (m *Model) All() []api.Account {
	return m.all
}

// Filter returns the active platform filter, or "" for all.
func (m *Model) Filter() api.Platform {
	if m.filter < 0 {
		return ""
	}
	return api.AllPlatforms[m.filter]
}

// CycleFilter steps through all platforms and back to no filter.
func (m *Model) CycleFilter() tea.Cmd {
	m.filter++
	if m.filter >= len(api.AllPlatforms) {
		m.filter = -1
	}
	return m.applyFilter()
}

func (m *Model) MoveSelection(delta int) tea.Cmd {
	n := m.list.Len()
	if n == 0 {
		return nil
	}
	m.selected = min(max(0, m.selected+delta), n-1)

	top := m.scroller.Top()
	switch {
	case m.selected < top:
		return m.scroller.ScrollTo(m.selected)
	case m.selected >= top+m.list.Height():
		return m.scroller.ScrollTo(m.selected - m.list.Height() + 1)
	}
	return nil
}

// Selected returns the account under the cursor, or nil.
func (m *Model) Selected() *api.Account {
	items := m.list.Items()
	if m.selected < 0 || m.selected >= len(items) {
		return nil
	}
	a := items[m.selected]
	return &a
}

func (m *Model) Stats() (rendered, total, subscriptions int) {
	return m.list.RenderCount(), m.list.Len(), m.scroller.Subscribers()
}

func (m *Model) View() string {
	label := "all"
	if f := m.Filter(); f != "" {
		label = string(f)
	}
	header := theme.StyleHeader.Render(fmt.Sprintf(" Accounts  %d shown  filter: %s", m.list.Len(), label))
	if m.loading {
		header += " " + m.spinner.View()
	}

	body := m.list.View()
	m.metrics.ObserveRender(listName, m.list.RenderCount(), m.list.Window().Range.Len())

	var footer string
	if m.err != nil {
		footer = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(" ✗ " + m.err.Error())
	} else {
		footer = theme.StyleDimmed.Render(" [f] filter platform")
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) applyFilter() tea.Cmd {
	want := m.Filter()
	var shown []api.Account
	for _, a := range m.all {
		if want == "" || a.Platform == want {
			shown = append(shown, a)
		}
	}
	m.list.SetItems(shown)
	m.selected = min(m.selected, max(0, len(shown)-1))
	return tea.Batch(m.syncGeometry(), m.scroller.Notify())
}

func (m *Model) syncGeometry() tea.Cmd {
	return m.scroller.SetGeometry(m.list.TotalHeight(), m.list.Height())
}

func (m *Model) renderItem(a api.Account, i int) string {
	cursor := "  "
	handleStyle := lipgloss.NewStyle().Foreground(theme.ColorBright)
	if i == m.selected {
		cursor = lipgloss.NewStyle().Foreground(theme.ColorAccent).Render("▌ ")
		handleStyle = theme.StyleSelected
	}

	device := a.DeviceID
	if len(device) > 8 {
		device = device[:8]
	}
	line := fmt.Sprintf("%s%s %s %8s followers %6d posts  %s",
		cursor,
		theme.PlatformBadge(string(a.Platform)),
		handleStyle.Render(fmt.Sprintf("%-24s", truncate(a.Handle, 24))),
		formatCount(a.Followers),
		a.Posts,
		theme.StyleDimmed.Render("on "+device),
	)
	if a.Banned {
		line += lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("  banned")
	}
	return line
}

func formatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

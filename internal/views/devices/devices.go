// Package devices renders the paginated device fleet as a virtual list.
package devices

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
	itemHeight = 2
	chrome     = 2 // header + footer rows
	listName   = "devices"
)

// Source pages through the fleet.
type Source interface {
	ListDevices(ctx context.Context, page, perPage int) (*api.Page[api.Device], error)
}

// PageLoadedMsg delivers one page of devices.
type PageLoadedMsg struct {
	Gen    int
	Number int
	Page   *api.Page[api.Device]
	Err    error
}

// Options tune paging and windowing.
type Options struct {
	PerPage           int
	Overscan          int
	LoadMoreThreshold int
}

// Model is the devices page.
type Model struct {
	ctx     context.Context
	src     Source
	perPage int
	metrics *telemetry.Metrics
	log     zerolog.Logger

	list     *viewport.VirtualList[api.Device]
	scroller *viewport.Scroller
	spinner  spinner.Model
	index    map[string]int

	selected int
	page     int
	total    int
	hasMore  bool
	loading  bool
	gen      int
	err      error
	width    int
	height   int
}

// New creates the page. Nothing is fetched until Init.
func New(ctx context.Context, src Source, opts Options, metrics *telemetry.Metrics, log zerolog.Logger) *Model {
	m := &Model{
		ctx:      ctx,
		src:      src,
		perPage:  max(1, opts.PerPage),
		metrics:  metrics,
		log:      log.With().Str("component", "devices").Logger(),
		scroller: viewport.NewScroller(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		index:    make(map[string]int),
		hasMore:  true,
	}
	m.list = viewport.NewVirtualList(itemHeight, 0, m.renderItem)
	m.list.SetEmptyState(theme.StyleDimmed.Render("No devices registered"))
	m.list.SetOnLoadMore(m.loadMore)
	m.SetTuning(opts.Overscan, opts.LoadMoreThreshold)
	m.list.Mount(m.scroller)
	return m
}

// Title is the tab label.
func (m *Model) Title() string { return "Devices" }

// Init fetches the first page.
func (m *Model) Init() tea.Cmd {
	return m.Reload()
}

// Reload discards loaded pages and fetches from the start. Results of
// earlier fetches still in flight are ignored.
func (m *Model) Reload() tea.Cmd {
	m.gen++
	m.page = 0
	m.total = 0
	m.hasMore = true
	m.err = nil
	m.selected = 0
	m.index = make(map[string]int)
	m.list.SetItems(nil)
	m.loading = false
	m.list.SetLoading(false)
	return tea.Batch(m.scroller.Home(), m.syncGeometry(), m.fetch(1))
}

// SetTuning applies overscan and load-more distance, both in rows.
func (m *Model) SetTuning(overscan, loadMoreThreshold int) {
	m.list.SetOverscan(overscan)
	m.list.SetLoadMoreThreshold(loadMoreThreshold)
}

// SetSize sets the page size including its header and footer.
func (m *Model) SetSize(width, height int) tea.Cmd {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(1, height-chrome))
	// A taller viewport may now reach the load-more threshold.
	return tea.Batch(m.syncGeometry(), m.scroller.Notify())
}

// SetActive is a no-op: rows carry no lazy content.
func (m *Model) SetActive(bool) tea.Cmd { return nil }

// Scroller exposes the page's scroll container.
func (m *Model) Scroller() *viewport.Scroller {
	return m.scroller
}

// Update handles page-local messages.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PageLoadedMsg:
		return m.handlePage(msg)

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

// ApplyDelta replaces loaded devices by ID and returns how many matched.
// Devices on pages not yet loaded are ignored.
func (m *Model) ApplyDelta(devs []api.Device) int {
	items := m.list.Items()
	n := 0
	for _, d := range devs {
		if i, ok := m.index[d.ID]; ok {
			items[i] = d
			n++
		}
	}
	return n
}

// MoveSelection moves the cursor by delta items and scrolls it into view.
func (m *Model) MoveSelection(delta int) tea.Cmd {
	n := m.list.Len()
	if n == 0 {
		return nil
	}
	m.selected = min(max(0, m.selected+delta), n-1)

	top := m.selected * itemHeight
	switch {
	case top < m.scroller.Top():
		return m.scroller.ScrollTo(top)
	case top+itemHeight > m.scroller.Top()+m.list.Height():
		return m.scroller.ScrollTo(top + itemHeight - m.list.Height())
	}
	return nil
}

// SelectRow moves the cursor to the device drawn at a list row.
func (m *Model) SelectRow(row int) {
	if i := m.list.IndexAt(row); i >= 0 {
		m.selected = i
	}
}

// Selected returns the device under the cursor, or nil.
func (m *Model) Selected() *api.Device {
	items := m.list.Items()
	if m.selected < 0 || m.selected >= len(items) {
		return nil
	}
	d := items[m.selected]
	return &d
}

// Loading reports whether a page fetch is in flight.
func (m *Model) Loading() bool { return m.loading }

// Stats reports the last render for the status bar.
func (m *Model) Stats() (rendered, total, subscriptions int) {
	return m.list.RenderCount(), m.total, m.scroller.Subscribers()
}

// View renders the header, the visible window and the footer.
func (m *Model) View() string {
	header := theme.StyleHeader.Render(fmt.Sprintf(" Devices  %d of %d loaded", m.list.Len(), m.total))
	if m.loading {
		header += " " + m.spinner.View()
	}

	body := m.list.View()
	w := m.list.Window()
	m.metrics.ObserveRender(listName, m.list.RenderCount(), w.Range.Len())

	var footer string
	switch {
	case m.err != nil:
		footer = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(" ✗ " + m.err.Error())
	case m.loading && m.list.Len() > 0:
		footer = theme.StyleDimmed.Render(" loading more…")
	case !m.hasMore && m.list.Len() > 0:
		footer = theme.StyleDimmed.Render(" end of fleet")
	default:
		footer = theme.StyleDimmed.Render(fmt.Sprintf(" rows %d-%d", w.FirstVisible+1, min(w.LastVisible+1, m.list.Len())))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) loadMore() tea.Cmd {
	if m.loading || !m.hasMore || m.err != nil {
		return nil
	}
	m.metrics.RecordLoadMore(listName)
	m.log.Debug().Int("page", m.page+1).Msg("load more")
	return m.fetch(m.page + 1)
}

func (m *Model) fetch(page int) tea.Cmd {
	m.loading = true
	m.list.SetLoading(true)

	ctx, src, gen, per := m.ctx, m.src, m.gen, m.perPage
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		pg, err := src.ListDevices(ctx, page, per)
		return PageLoadedMsg{Gen: gen, Number: page, Page: pg, Err: err}
	})
}

func (m *Model) handlePage(msg PageLoadedMsg) tea.Cmd {
	if msg.Gen != m.gen {
		return nil
	}
	m.loading = false
	m.list.SetLoading(false)

	if msg.Err != nil {
		m.err = msg.Err
		m.log.Error().Err(msg.Err).Int("page", msg.Number).Msg("device page failed")
		return nil
	}

	items := m.list.Items()
	for _, d := range msg.Page.Items {
		m.index[d.ID] = len(items)
		items = append(items, d)
	}
	m.list.SetItems(items)
	m.page = msg.Number
	m.total = msg.Page.Total
	m.hasMore = msg.Page.HasMore

	// Re-deliver the current position so a short first page keeps filling
	// the viewport.
	return tea.Batch(m.syncGeometry(), m.scroller.Notify())
}

func (m *Model) syncGeometry() tea.Cmd {
	return m.scroller.SetGeometry(m.list.TotalHeight(), m.list.Height())
}

func (m *Model) renderItem(d api.Device, i int) string {
	status := string(d.Status)
	statusStyle := lipgloss.NewStyle().Foreground(theme.StatusColor(status))

	cursor := "  "
	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBright)
	if i == m.selected {
		cursor = lipgloss.NewStyle().Foreground(theme.ColorAccent).Render("▌ ")
		nameStyle = theme.StyleSelected
	}

	line1 := fmt.Sprintf("%s%s %s %s %s",
		cursor,
		statusStyle.Render(theme.StatusGlyph(status)),
		nameStyle.Render(fmt.Sprintf("%-18s", truncate(d.Name, 18))),
		theme.StyleDimmed.Render(fmt.Sprintf("%-16s", truncate(d.Model, 16))),
		statusStyle.Render(status),
	)

	task := d.Task
	if task == "" {
		task = "—"
	}
	line2 := fmt.Sprintf("    %s %s %3d%%  %s  %s",
		theme.StyleDimmed.Render(fmt.Sprintf("%-10s", truncate(d.Group, 10))),
		renderBattery(d.Battery, 10),
		d.Battery,
		theme.StyleDimmed.Render(fmt.Sprintf("%2d accts", d.Accounts)),
		theme.StyleDimmed.Render(task),
	)
	return line1 + "\n" + line2
}

func renderBattery(pct, width int) string {
	filled := min(max(0, pct*width/100), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(theme.BatteryColor(pct)).Render(bar)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Package scenarios renders the playbook feed. Each card carries a cover
// image fetched on first sight and a markdown excerpt that is only rendered
// while the card is near the viewport.
package scenarios

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
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
)

const (
	chrome   = 2
	gutter   = 2
	listName = "scenarios"
)

var (
	styleCardTitle = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBright)
	styleSummary   = lipgloss.NewStyle().Foreground(theme.ColorDefault)
)

// Source returns the scenario catalogue.
type Source interface {
	ListScenarios(ctx context.Context) ([]api.Scenario, error)
}

// LoadedMsg delivers the scenario catalogue.
type LoadedMsg struct {
	Gen       int
	Scenarios []api.Scenario
	Err       error
}

// Options size the cards and the lead distance of lazy content.
type Options struct {
	MediaWidth  int
	MediaHeight int
	RootMargin  int
	Overscan    int
	// MediaURL maps a cover reference to a fetchable URL.
	MediaURL func(ref string) string
}

type card struct {
	scenario api.Scenario
	cover    *viewport.Image
	coverBox *viewport.Box
	body     *viewport.Boundary
	bodyBox  *viewport.Box
}

// Model is the scenarios page.
type Model struct {
	ctx     context.Context
	src     Source
	loader  viewport.ResourceLoader
	opts    Options
	metrics *telemetry.Metrics
	log     zerolog.Logger

	scroller *viewport.Scroller
	detector *viewport.GeometryDetector
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	list     *viewport.VirtualList[*card]

	cards  []*card
	images map[string]*viewport.Image

	selected int
	active   bool
	loading  bool
	gen      int
	err      error
	width    int
	height   int
}

// New creates the page. Nothing is fetched until Init.
func New(ctx context.Context, src Source, loader viewport.ResourceLoader, opts Options, metrics *telemetry.Metrics, log zerolog.Logger) *Model {
	opts.MediaWidth = max(4, opts.MediaWidth)
	opts.MediaHeight = max(2, opts.MediaHeight)
	if opts.MediaURL == nil {
		opts.MediaURL = func(ref string) string { return ref }
	}
	m := &Model{
		ctx:      ctx,
		src:      src,
		loader:   loader,
		opts:     opts,
		metrics:  metrics,
		log:      log.With().Str("component", "scenarios").Logger(),
		scroller: viewport.NewScroller(),
		detector: viewport.NewGeometryDetector(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		images:   make(map[string]*viewport.Image),
		active:   true,
	}
	m.list = viewport.NewVirtualList(m.cardHeight(), 0, m.renderItem)
	m.list.SetOverscan(opts.Overscan)
	m.list.Mount(m.scroller)
	m.scroller.SubscribeScroll(m.handleScroll)
	return m
}

func (m *Model) Title() string { return "Scenarios" }

func (m *Model) Init() tea.Cmd {
	return m.Reload()
}

// Reload unmounts every card and refetches the catalogue.
func (m *Model) Reload() tea.Cmd {
	m.unmountAll()
	m.gen++
	m.loading = true
	m.err = nil
	m.selected = 0

	ctx, src, gen := m.ctx, m.src, m.gen
	return tea.Batch(m.scroller.Home(), m.syncGeometry(), m.spinner.Tick, func() tea.Msg {
		list, err := src.ListScenarios(ctx)
		return LoadedMsg{Gen: gen, Scenarios: list, Err: err}
	})
}

// SetTuning applies card overscan. Cards are never paged.
func (m *Model) SetTuning(overscan, _ int) {
	m.opts.Overscan = max(0, overscan)
	m.list.SetOverscan(m.opts.Overscan)
}

// SetActive marks whether the page is on screen. A hidden page keeps its
// cards mounted but evaluates nothing, so no cover starts loading until the
// page is shown.
func (m *Model) SetActive(active bool) tea.Cmd {
	if active == m.active {
		return nil
	}
	m.active = active
	return m.evaluate()
}

// SetSize relays out every card for the new width and re-evaluates
// visibility.
func (m *Model) SetSize(width, height int) tea.Cmd {
	if width != m.width {
		m.width = width
		m.renderer = m.newRenderer()
	}
	m.height = height
	m.list.SetSize(width, m.listHeight())
	m.layout()
	return tea.Batch(m.syncGeometry(), m.evaluate())
}

func (m *Model) Scroller() *viewport.Scroller {
	return m.scroller
}

// Detector exposes the visibility detector cards are observed by.
func (m *Model) Detector() *viewport.GeometryDetector {
	return m.detector
}

func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case LoadedMsg:
		return m.handleLoaded(msg)

	case viewport.ImageLoadedMsg:
		return m.routeImage(msg.ID, msg)
	case viewport.ImageErroredMsg:
		return m.routeImage(msg.ID, msg)
	case viewport.ImageFadeMsg:
		return m.routeImage(msg.ID, msg)

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

func (m *Model) MoveSelection(delta int) tea.Cmd {
	if len(m.cards) == 0 {
		return nil
	}
	m.selected = min(max(0, m.selected+delta), len(m.cards)-1)

	h := m.cardHeight()
	top := m.selected * h
	switch {
	case top < m.scroller.Top():
		return m.scroller.ScrollTo(top)
	case top+h > m.scroller.Top()+m.listHeight():
		return m.scroller.ScrollTo(top + h - m.listHeight())
	}
	return nil
}

// Stats reports cards drawn by the last View, the catalogue size and open
// subscriptions.
func (m *Model) Stats() (rendered, total, subscriptions int) {
	return m.list.RenderCount(), len(m.cards), m.detector.ActiveSubscriptions() + m.scroller.Subscribers()
}

// CoverStates counts covers per resource state.
func (m *Model) CoverStates() map[viewport.ResourceState]int {
	out := make(map[viewport.ResourceState]int)
	for _, c := range m.cards {
		out[c.cover.State()]++
	}
	return out
}

func (m *Model) View() string {
	header := theme.StyleHeader.Render(fmt.Sprintf(" Scenarios  %d playbooks", len(m.cards)))
	if m.loading {
		header += " " + m.spinner.View()
	}

	empty := "No scenarios yet"
	if m.loading {
		empty = "Loading scenarios…"
	}
	m.list.SetEmptyState(theme.StyleDimmed.Render(empty))
	body := m.list.View()
	m.metrics.ObserveRender(listName, m.list.RenderCount(), m.list.Window().Range.Len())

	var footer string
	if m.err != nil {
		footer = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(" ✗ " + m.err.Error())
	} else {
		states := m.CoverStates()
		footer = theme.StyleDimmed.Render(fmt.Sprintf(" covers %d/%d loaded, %d failed",
			states[viewport.ResourceLoaded], len(m.cards), states[viewport.ResourceErrored]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) handleLoaded(msg LoadedMsg) tea.Cmd {
	if msg.Gen != m.gen {
		return nil
	}
	m.loading = false
	if msg.Err != nil {
		m.err = msg.Err
		m.log.Error().Err(msg.Err).Msg("scenario list failed")
		return nil
	}

	m.unmountAll()
	for _, sc := range msg.Scenarios {
		m.cards = append(m.cards, m.newCard(sc))
	}
	m.list.SetItems(m.cards)
	m.layout()
	for _, c := range m.cards {
		c.cover.Mount(m.detector)
		c.body.Mount(m.detector)
		m.images[c.cover.ID()] = c.cover
	}
	m.log.Debug().Int("scenarios", len(m.cards)).Msg("scenarios loaded")
	return tea.Batch(m.syncGeometry(), m.evaluate())
}

func (m *Model) newCard(sc api.Scenario) *card {
	c := &card{
		scenario: sc,
		coverBox: viewport.NewBox(viewport.Rect{}),
		bodyBox:  viewport.NewBox(viewport.Rect{}),
	}
	margin := viewport.VerticalMargin(m.opts.RootMargin)

	c.cover = viewport.NewImage(c.coverBox, m.loader, viewport.ImageOptions{
		Src:        m.opts.MediaURL(sc.CoverURL),
		Alt:        sc.Title,
		Width:      m.opts.MediaWidth,
		Height:     m.opts.MediaHeight,
		RootMargin: margin,
		OnLoad: func() tea.Cmd {
			m.metrics.RecordImageLoad("loaded")
			return nil
		},
		OnError: func(err error) tea.Cmd {
			m.metrics.RecordImageLoad("errored")
			m.log.Warn().Err(err).Str("scenario", sc.ID).Msg("cover failed")
			return nil
		},
	})

	c.body = viewport.NewBoundary(c.bodyBox,
		func() string { return m.renderBody(c) },
		func() string { return m.bodyPlaceholder() },
		viewport.BoundaryOptions{RootMargin: margin},
	)
	return c
}

func (m *Model) routeImage(id string, msg tea.Msg) tea.Cmd {
	img, ok := m.images[id]
	if !ok {
		return nil
	}
	return img.Update(msg)
}

func (m *Model) handleScroll(viewport.ScrollEvent) tea.Cmd {
	return m.evaluate()
}

func (m *Model) evaluate() tea.Cmd {
	if !m.active || m.width <= 0 || m.height <= 0 {
		return nil
	}
	cmd := m.detector.Evaluate(viewport.Rect{
		X:      0,
		Y:      m.scroller.Top(),
		Width:  m.width,
		Height: m.listHeight(),
	})
	m.metrics.SetSubscriptions(m.detector.ActiveSubscriptions(), m.scroller.Subscribers())
	return cmd
}

// layout places every card's elements in content coordinates.
func (m *Model) layout() {
	h := m.cardHeight()
	bodyX := m.opts.MediaWidth + gutter
	for i, c := range m.cards {
		top := i * h
		c.coverBox.SetBounds(viewport.Rect{X: 0, Y: top + 1, Width: m.opts.MediaWidth, Height: m.opts.MediaHeight})
		c.bodyBox.SetBounds(viewport.Rect{X: bodyX, Y: top + 2, Width: m.bodyWidth(), Height: m.bodyHeight()})
		c.body.Invalidate()
	}
}

func (m *Model) unmountAll() {
	for _, c := range m.cards {
		c.cover.Unmount()
		c.body.Unmount()
	}
	m.cards = nil
	m.list.SetItems(nil)
	m.images = make(map[string]*viewport.Image)
}

func (m *Model) syncGeometry() tea.Cmd {
	return m.scroller.SetGeometry(m.list.TotalHeight(), m.listHeight())
}

// Card: a title row, MediaHeight rows of cover beside summary and body,
// then a blank separator.
func (m *Model) cardHeight() int { return m.opts.MediaHeight + 2 }
func (m *Model) bodyHeight() int { return m.opts.MediaHeight - 1 }
func (m *Model) bodyWidth() int   { return max(1, m.width-1-m.opts.MediaWidth-gutter) }
func (m *Model) listHeight() int { return max(1, m.height-chrome) }

func (m *Model) renderItem(c *card, i int) string {
	return strings.Join(m.renderCard(c, i), "\n")
}

func (m *Model) renderCard(c *card, i int) []string {
	sc := c.scenario

	cursor := "  "
	if i == m.selected {
		cursor = lipgloss.NewStyle().Foreground(theme.ColorAccent).Render("▌ ")
	}
	meta := theme.StyleDimmed.Render(fmt.Sprintf("%d steps · %d runs", sc.Steps, sc.Runs))
	lines := []string{viewport.FitLine(cursor+styleCardTitle.Render(sc.Title)+"  "+meta, m.width)}

	cover := strings.Split(c.cover.View(), "\n")
	right := append([]string{styleSummary.Render(sc.Summary)}, strings.Split(c.body.View(), "\n")...)
	for row := 0; row < m.opts.MediaHeight; row++ {
		var l, r string
		if row < len(cover) {
			l = cover[row]
		}
		if row < len(right) {
			r = right[row]
		}
		lines = append(lines, viewport.FitLine(l, m.opts.MediaWidth)+strings.Repeat(" ", gutter)+viewport.FitLine(r, m.bodyWidth()))
	}
	return append(lines, "")
}

// renderBody renders the markdown body, dropping blank lines and clipping
// to the rows left beside the cover.
func (m *Model) renderBody(c *card) string {
	out := c.scenario.Body
	if m.renderer != nil {
		rendered, err := m.renderer.Render(c.scenario.Body)
		if err != nil {
			m.log.Warn().Err(err).Str("scenario", c.scenario.ID).Msg("markdown render failed")
		} else {
			out = rendered
		}
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(ansi.Strip(line)) == "" {
			continue
		}
		lines = append(lines, strings.TrimLeft(line, " "))
		if len(lines) == m.bodyHeight() {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) bodyPlaceholder() string {
	lines := make([]string, m.bodyHeight())
	lines[0] = theme.StyleDimmed.Render("· · ·")
	return strings.Join(lines, "\n")
}

func (m *Model) newRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(m.bodyWidth()),
	)
	if err != nil {
		m.log.Warn().Err(err).Msg("markdown renderer unavailable")
		return nil
	}
	return r
}

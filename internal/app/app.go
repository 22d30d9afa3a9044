package app

import (
	"context"
	"fmt"

	"github.com/acqdash/console/internal/client"
	"github.com/acqdash/console/internal/config"
	"github.com/acqdash/console/internal/telemetry"
	"github.com/acqdash/console/internal/theme"
	"github.com/acqdash/console/internal/viewport"
	"github.com/acqdash/console/internal/views/accounts"
	"github.com/acqdash/console/internal/views/dashboard"
	"github.com/acqdash/console/internal/views/debug"
	"github.com/acqdash/console/internal/views/detail"
	"github.com/acqdash/console/internal/views/devices"
	"github.com/acqdash/console/internal/views/scenarios"
	"github.com/acqdash/console/internal/views/status"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlayDebug
)

// Page indexes the tabs.
type Page int

const (
	PageDevices Page = iota
	PageAccounts
	PageScenarios
	pageCount
)

const wheelStep = 3

// page is what every tab exposes to the root model.
type page interface {
	Title() string
	Init() tea.Cmd
	Reload() tea.Cmd
	SetTuning(overscan, loadMoreThreshold int)
	SetSize(width, height int) tea.Cmd
	// SetActive tells the page whether it is the visible tab.
	SetActive(active bool) tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	Scroller() *viewport.Scroller
	MoveSelection(delta int) tea.Cmd
	Stats() (rendered, total, subscriptions int)
}

// API is the REST surface the pages read from.
type API interface {
	devices.Source
	accounts.Source
	scenarios.Source
	MediaURL(ref string) string
}

// Deps wires the root model to its data sources. WS, Watcher and Loader may
// be nil.
type Deps struct {
	Config  *config.Config
	API     API
	WS      *client.WSClient
	Loader  viewport.ResourceLoader
	Watcher *config.Watcher
	Metrics *telemetry.Metrics
	Log     zerolog.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	ws      *client.WSClient
	watcher *config.Watcher
	metrics *telemetry.Metrics
	cfg     *config.Config
	log     zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	keys   KeyMap
	help   help.Model
	width  int
	height int

	// Pages.
	devices   *devices.Model
	accounts  *accounts.Model
	scenarios *scenarios.Model
	pages     [pageCount]page
	active    Page

	// Overlays and chrome.
	overlay   Overlay
	detail    detail.Model
	debugLog  *debug.Model
	statusBar status.Model
	dashboard dashboard.Model

	connected bool
}

// New creates the root model.
func New(deps Deps) Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	log := deps.Log.With().Str("component", "app").Logger()

	m := Model{
		ws:        deps.WS,
		watcher:   deps.Watcher,
		metrics:   deps.Metrics,
		cfg:       cfg,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		debugLog:  debug.New(),
		statusBar: status.New(),
		dashboard: dashboard.New(),
	}

	vp := cfg.Viewport
	m.devices = devices.New(ctx, deps.API, devices.Options{
		PerPage:           cfg.Client.PageSize,
		Overscan:          vp.Overscan,
		LoadMoreThreshold: vp.LoadMoreThreshold,
	}, deps.Metrics, deps.Log)
	m.accounts = accounts.New(ctx, deps.API, vp.Overscan, deps.Metrics, deps.Log)
	m.scenarios = scenarios.New(ctx, deps.API, deps.Loader, scenarios.Options{
		MediaWidth:  vp.MediaWidth,
		MediaHeight: vp.MediaHeight,
		RootMargin:  vp.RootMargin,
		Overscan:    0,
		MediaURL:    deps.API.MediaURL,
	}, deps.Metrics, deps.Log)
	m.pages = [pageCount]page{m.devices, m.accounts, m.scenarios}
	for i, p := range m.pages {
		p.SetActive(Page(i) == m.active)
	}
	return m
}

// Init loads every page and starts the background loops.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listen()}
	for _, p := range m.pages {
		cmds = append(cmds, p.Init())
	}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.Next())
	}
	if d := m.cfg.Metrics.SampleInterval; d > 0 {
		cmds = append(cmds, telemetry.SampleCmd(m.metrics, d))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.dashboard.Width = msg.Width
		m.help.Width = msg.Width
		m.debugLog.SetSize(msg.Width, msg.Height)
		return m, m.resize()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		m.debugLog.Add("ws", "connected")
		return m, m.readLoop()

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		if msg.Err != nil {
			m.debugLog.Addf("err", "disconnected: %v", msg.Err)
		}
		return m, m.listen()

	case client.WSHelloMsg:
		p := msg.Payload
		m.statusBar.SetTotals(p.Devices, p.Accounts, p.Scenarios)
		m.statusBar.Counts = p.Counts
		m.dashboard.SetCounts(p.Counts)
		m.debugLog.Addf("ws", "hello: %d devices, %d accounts, %d scenarios", p.Devices, p.Accounts, p.Scenarios)
		return m, m.readLoop()

	case client.WSDeviceDeltaMsg:
		n := m.devices.ApplyDelta(msg.Payload.Devices)
		if msg.Payload.Counts != nil {
			m.statusBar.Counts = msg.Payload.Counts
			m.dashboard.SetCounts(msg.Payload.Counts)
		}
		m.debugLog.Addf("ws", "delta: %d devices, %d loaded", len(msg.Payload.Devices), n)
		return m, m.readLoop()

	case client.WSErrorMsg:
		m.debugLog.Addf("err", "server: %s %s", msg.Payload.Code, msg.Payload.Message)
		return m, m.readLoop()

	case config.ReloadedMsg:
		m.applyConfig(msg.Config)
		return m, m.nextConfig()

	case config.ReloadFailedMsg:
		m.debugLog.Addf("err", "config: %v", msg.Err)
		return m, m.nextConfig()

	case telemetry.ProcessSampledMsg:
		if msg.Err == nil {
			m.statusBar.RSS = msg.Stats.RSS
		}
		return m, telemetry.SampleCmd(m.metrics, m.cfg.Metrics.SampleInterval)
	}

	// Page-local messages: each page ignores what is not its own.
	var cmds []tea.Cmd
	for _, p := range m.pages {
		cmds = append(cmds, p.Update(msg))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, m.quit()
	}

	switch m.overlay {
	case OverlayDebug:
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.debugLog.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debugLog.ScrollDown(1)
		case key.Matches(msg, m.keys.PageUp):
			m.debugLog.ScrollUp(m.debugLog.Scroller().Event().ClientHeight)
		case key.Matches(msg, m.keys.PageDown):
			m.debugLog.ScrollDown(m.debugLog.Scroller().Event().ClientHeight)
		}
		return m, nil
	case OverlayDetail:
		if key.Matches(msg, m.keys.Escape) {
			m.overlay = OverlayNone
		}
		return m, nil
	}

	active := m.pages[m.active]
	switch {
	case key.Matches(msg, m.keys.Down):
		return m, active.MoveSelection(1)
	case key.Matches(msg, m.keys.Up):
		return m, active.MoveSelection(-1)
	case key.Matches(msg, m.keys.PageDown):
		return m, active.Scroller().PageDown()
	case key.Matches(msg, m.keys.PageUp):
		return m, active.Scroller().PageUp()
	case key.Matches(msg, m.keys.Home):
		return m, active.Scroller().Home()
	case key.Matches(msg, m.keys.End):
		return m, active.Scroller().End()

	case key.Matches(msg, m.keys.Tab):
		cmd := m.switchTo((m.active + 1) % pageCount)
		return m, cmd
	case key.Matches(msg, m.keys.Page1):
		cmd := m.switchTo(PageDevices)
		return m, cmd
	case key.Matches(msg, m.keys.Page2):
		cmd := m.switchTo(PageAccounts)
		return m, cmd
	case key.Matches(msg, m.keys.Page3):
		cmd := m.switchTo(PageScenarios)
		return m, cmd

	case key.Matches(msg, m.keys.Filter):
		if m.active == PageAccounts {
			return m, m.accounts.CycleFilter()
		}

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug

	case key.Matches(msg, m.keys.Reload):
		m.debugLog.Addf("nav", "reload %s", active.Title())
		if m.ws != nil && m.active == PageDevices {
			if err := m.ws.Resync(); err != nil {
				m.log.Debug().Err(err).Msg("resync skipped")
			}
		}
		return m, active.Reload()

	case key.Matches(msg, m.keys.Enter):
		if m.active != PageDevices {
			return m, nil
		}
		if d := m.devices.Selected(); d != nil {
			m.detail = detail.New(d, m.accounts.All())
			m.overlay = OverlayDetail
			m.debugLog.Addf("nav", "detail %s", detail.DisplayName(d))
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch m.overlay {
	case OverlayDebug:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.debugLog.ScrollUp(wheelStep)
		case tea.MouseButtonWheelDown:
			m.debugLog.ScrollDown(wheelStep)
		}
		return m, nil
	case OverlayDetail:
		return m, nil
	}

	scroller := m.pages[m.active].Scroller()
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m, scroller.ScrollBy(-wheelStep)
	case tea.MouseButtonWheelDown:
		return m, scroller.ScrollBy(wheelStep)
	case tea.MouseButtonLeft:
		if m.active == PageDevices {
			// Rows below the chrome and the page header.
			m.devices.SelectRow(msg.Y - m.chromeHeight() - 1)
		}
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	switch m.overlay {
	case OverlayDetail:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.detail.View())
	case OverlayDebug:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.debugLog.View())
	}

	active := m.pages[m.active]
	body := active.View()

	sb := m.statusBar
	rendered, total, subs := active.Stats()
	sb.Render = status.RenderStats{Rendered: rendered, Total: total, Subscriptions: subs}
	m.metrics.SetSubscriptions(m.scenarios.Detector().ActiveSubscriptions(), m.scrollSubscriptions())

	return lipgloss.JoinVertical(lipgloss.Left,
		sb.View(),
		m.dashboard.View(),
		m.renderTabs(),
		body,
		m.help.View(m.keys),
	)
}

func (m Model) renderTabs() string {
	var tabs string
	for i, p := range m.pages {
		label := fmt.Sprintf(" %d %s ", i+1, p.Title())
		if Page(i) == m.active {
			tabs += theme.StyleTabActive.Render(label)
		} else {
			tabs += theme.StyleTabInactive.Render(label)
		}
	}
	if m.connected {
		return tabs
	}

	banner := lipgloss.NewStyle().Foreground(theme.ColorDanger).Bold(true).Render("DISCONNECTED") +
		theme.StyleDimmed.Render("  Reconnecting… live updates paused ")
	gap := max(1, m.width-lipgloss.Width(tabs)-lipgloss.Width(banner))
	return tabs + lipgloss.NewStyle().Width(gap).Render("") + banner
}

// switchTo shows page p. The page it replaces stops evaluating visibility.
func (m *Model) switchTo(p Page) tea.Cmd {
	if p == m.active {
		return nil
	}
	prev := m.pages[m.active]
	m.active = p
	m.debugLog.Addf("nav", "page %s", m.pages[p].Title())
	return tea.Batch(prev.SetActive(false), m.pages[p].SetActive(true))
}

// chromeHeight is the number of rows above the active page.
func (m Model) chromeHeight() int {
	return lipgloss.Height(m.statusBar.View()) + lipgloss.Height(m.dashboard.View()) + 1
}

func (m Model) resize() tea.Cmd {
	h := max(3, m.height-m.chromeHeight()-1)
	var cmds []tea.Cmd
	for _, p := range m.pages {
		cmds = append(cmds, p.SetSize(m.width, h))
	}
	return tea.Batch(cmds...)
}

func (m *Model) applyConfig(cfg *config.Config) {
	vp := cfg.Viewport
	for _, p := range m.pages {
		p.SetTuning(vp.Overscan, vp.LoadMoreThreshold)
	}
	m.cfg.Viewport.Overscan = vp.Overscan
	m.cfg.Viewport.LoadMoreThreshold = vp.LoadMoreThreshold
	m.debugLog.Addf("cfg", "reloaded: overscan %d, load-more %d", vp.Overscan, vp.LoadMoreThreshold)
	m.log.Info().Int("overscan", vp.Overscan).Int("load_more_threshold", vp.LoadMoreThreshold).Msg("config reloaded")
}

func (m Model) scrollSubscriptions() int {
	n := m.debugLog.Scroller().Subscribers()
	for _, p := range m.pages {
		n += p.Scroller().Subscribers()
	}
	return n
}

func (m Model) listen() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.Listen(m.ctx)
}

func (m Model) readLoop() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.ReadLoop(m.ctx)
}

func (m Model) nextConfig() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Next()
}

func (m Model) quit() tea.Cmd {
	m.cancel()
	if m.ws != nil {
		m.ws.Close()
	}
	if m.watcher != nil {
		m.watcher.Close()
	}
	return tea.Quit
}

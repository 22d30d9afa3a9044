package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/acqdash/console/internal/api"
	"github.com/acqdash/console/internal/client"
	"github.com/acqdash/console/internal/config"
	"github.com/acqdash/console/internal/views/scenarios"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

type fakeAPI struct {
	devices   []api.Device
	accounts  []api.Account
	scenarios []api.Scenario
}

func (f *fakeAPI) ListDevices(_ context.Context, page, perPage int) (*api.Page[api.Device], error) {
	start := min((page-1)*perPage, len(f.devices))
	end := min(start+perPage, len(f.devices))
	return &api.Page[api.Device]{
		Items:   f.devices[start:end],
		Page:    page,
		PerPage: perPage,
		Total:   len(f.devices),
		HasMore: end < len(f.devices),
	}, nil
}

func (f *fakeAPI) ListAccounts(context.Context) ([]api.Account, error) {
	return f.accounts, nil
}

func (f *fakeAPI) ListScenarios(context.Context) ([]api.Scenario, error) {
	return f.scenarios, nil
}

func (f *fakeAPI) MediaURL(ref string) string { return ref }

// countingLoader records cover fetches. Commands run synchronously in these
// tests, so no locking is needed.
type countingLoader struct {
	srcs []string
}

func (l *countingLoader) Load(_ context.Context, src string, width, height int) (string, error) {
	l.srcs = append(l.srcs, src)
	return strings.Repeat("#", width), nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	src := &fakeAPI{}
	for i := 0; i < 30; i++ {
		src.devices = append(src.devices, api.Device{
			ID:     fmt.Sprintf("dev-%03d", i),
			Name:   fmt.Sprintf("rack-%03d", i),
			Status: api.DeviceOnline,
		})
	}
	src.accounts = []api.Account{{ID: "a1", Handle: "@first.shop", Platform: api.PlatformTikTok, DeviceID: "dev-000"}}

	m := New(Deps{API: src, Log: zerolog.Nop()})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	// Fetch the first device page and the accounts through the root model.
	for _, cmd := range []tea.Cmd{m.devices.Reload(), m.accounts.Reload()} {
		for _, msg := range drain(cmd) {
			m = update(t, m, msg)
		}
	}
	return m
}

// drain runs cmd and every command it batches, returning the messages.
// Timers are not involved: page loads resolve immediately.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewBeforeSize(t *testing.T) {
	m := New(Deps{API: &fakeAPI{}, Log: zerolog.Nop()})
	if v := m.View(); v != "Initializing..." {
		t.Errorf("View() = %q", v)
	}
}

func TestDisconnectBanner(t *testing.T) {
	m := newTestModel(t)

	v := m.View()
	if !strings.Contains(v, "DISCONNECTED") {
		t.Error("tab bar should contain 'DISCONNECTED'")
	}
	if !strings.Contains(v, "Reconnecting") {
		t.Error("tab bar should contain 'Reconnecting'")
	}

	m = update(t, m, client.WSConnectedMsg{})
	if strings.Contains(m.View(), "DISCONNECTED") {
		t.Error("banner should clear once connected")
	}
}

func TestTabSwitching(t *testing.T) {
	m := newTestModel(t)
	if m.active != PageDevices {
		t.Fatalf("initial page = %d", m.active)
	}

	m = update(t, m, keyPress("tab"))
	if m.active != PageAccounts {
		t.Errorf("after tab page = %d, want accounts", m.active)
	}
	m = update(t, m, keyPress("3"))
	if m.active != PageScenarios {
		t.Errorf("after 3 page = %d, want scenarios", m.active)
	}
	m = update(t, m, keyPress("tab"))
	if m.active != PageDevices {
		t.Errorf("tab should wrap to devices, got %d", m.active)
	}
}

func TestHiddenScenariosFetchNoCovers(t *testing.T) {
	loader := &countingLoader{}
	src := &fakeAPI{scenarios: []api.Scenario{
		{ID: "sc-1", Title: "Cold start warmup", CoverURL: "/media/sc-1.png"},
		{ID: "sc-2", Title: "Hashtag ladder", CoverURL: "/media/sc-2.png"},
	}}
	m := New(Deps{API: src, Loader: loader, Log: zerolog.Nop()})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	// Scenarios arrive while the devices tab is showing.
	for _, msg := range drain(m.scenarios.Reload()) {
		if lm, ok := msg.(scenarios.LoadedMsg); ok {
			next, cmd := m.Update(lm)
			m = next.(Model)
			drain(cmd)
		}
	}
	if len(loader.srcs) != 0 {
		t.Fatalf("hidden page fetched covers: %v", loader.srcs)
	}

	next, cmd := m.Update(keyPress("3"))
	m = next.(Model)
	drain(cmd)
	if m.active != PageScenarios {
		t.Fatalf("page = %d, want scenarios", m.active)
	}
	if len(loader.srcs) != 2 {
		t.Errorf("covers fetched on show = %v, want both", loader.srcs)
	}

	// Leaving and returning does not fetch again.
	m = update(t, m, keyPress("1"))
	next, cmd = m.Update(keyPress("3"))
	drain(cmd)
	if len(loader.srcs) != 2 {
		t.Errorf("covers refetched: %v", loader.srcs)
	}
}

func TestHelloUpdatesChrome(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, client.WSHelloMsg{Payload: api.HelloPayload{
		Devices:   30,
		Accounts:  1,
		Scenarios: 0,
		Counts:    api.StatusMap{api.DeviceOnline: 28, api.DeviceError: 2},
	}})

	if m.dashboard.Total() != 30 {
		t.Errorf("dashboard total = %d", m.dashboard.Total())
	}
	if !strings.Contains(m.View(), "30 devices") {
		t.Error("status bar should show device total")
	}
}

func TestDeviceDeltaReachesList(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, client.WSDeviceDeltaMsg{Payload: api.DeviceDeltaPayload{
		Devices: []api.Device{{ID: "dev-001", Name: "rack-001", Status: api.DeviceError, Task: "captcha wall"}},
	}})

	if !strings.Contains(m.View(), "captcha wall") {
		t.Error("delta should be visible in the devices page")
	}
	last := m.debugLog.Entries()[len(m.debugLog.Entries())-1]
	if !strings.Contains(last.Message, "1 loaded") {
		t.Errorf("debug entry = %q", last.Message)
	}
}

func TestEnterOpensDetail(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, keyPress("enter"))
	if m.overlay != OverlayDetail {
		t.Fatalf("overlay = %d, want detail", m.overlay)
	}
	v := m.View()
	if !strings.Contains(v, "rack-000") || !strings.Contains(v, "@first.shop") {
		t.Error("detail should show the selected device and its accounts")
	}

	m = update(t, m, keyPress("esc"))
	if m.overlay != OverlayNone {
		t.Error("esc should close the overlay")
	}
}

func TestMoveSelectionKeys(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyPress("j"))
	m = update(t, m, keyPress("j"))
	if d := m.devices.Selected(); d == nil || d.ID != "dev-002" {
		t.Errorf("selected = %+v, want dev-002", d)
	}
	m = update(t, m, keyPress("k"))
	if d := m.devices.Selected(); d == nil || d.ID != "dev-001" {
		t.Errorf("selected = %+v, want dev-001", d)
	}
}

func TestDebugOverlay(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyPress("d"))
	if m.overlay != OverlayDebug {
		t.Fatalf("overlay = %d, want debug", m.overlay)
	}
	if !strings.Contains(m.View(), "DEBUG LOG") {
		t.Error("debug overlay should render")
	}
	m = update(t, m, keyPress("d"))
	if m.overlay != OverlayNone {
		t.Error("d should toggle the debug overlay off")
	}
}

func TestConfigReloadAppliesTuning(t *testing.T) {
	m := newTestModel(t)
	cfg := config.Default()
	cfg.Viewport.Overscan = 1
	cfg.Viewport.LoadMoreThreshold = 3

	m = update(t, m, config.ReloadedMsg{Config: cfg})
	if m.cfg.Viewport.Overscan != 1 || m.cfg.Viewport.LoadMoreThreshold != 3 {
		t.Errorf("viewport config = %+v", m.cfg.Viewport)
	}
	last := m.debugLog.Entries()[len(m.debugLog.Entries())-1]
	if last.Kind != "cfg" {
		t.Errorf("last debug entry kind = %q, want cfg", last.Kind)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

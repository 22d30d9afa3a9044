package status

import (
	"strings"
	"testing"

	"github.com/acqdash/console/internal/api"
)

func TestViewShowsTotalsAndRender(t *testing.T) {
	m := New()
	m.Width = 160
	m.Connected = true
	m.SetTotals(2000, 300, 40)
	m.Counts[api.DeviceOnline] = 1500
	m.Render = RenderStats{Rendered: 21, Total: 2000, Subscriptions: 12}
	m.RSS = 48 << 20

	v := m.View()
	for _, want := range []string{"Live", "2000 devices", "300 accounts", "● 1500", "render 21/2000", "obs 12", "rss 48.0MiB"} {
		if !strings.Contains(v, want) {
			t.Errorf("status bar missing %q", want)
		}
	}
}

func TestViewDisconnected(t *testing.T) {
	m := New()
	v := m.View()
	if !strings.Contains(v, "Connecting") {
		t.Error("disconnected bar should say Connecting")
	}
	if strings.Contains(v, "rss") {
		t.Error("rss is hidden until sampled")
	}
}

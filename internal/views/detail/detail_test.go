package detail

import (
	"strings"
	"testing"
	"time"

	"github.com/acqdash/console/internal/api"
)

func TestViewNil(t *testing.T) {
	if v := New(nil, nil).View(); v != "" {
		t.Errorf("expected empty view, got %q", v)
	}
}

func TestViewDevice(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d := &api.Device{
		ID:         "3f1c2a9e-0000-4000-8000-000000000001",
		Name:       "rack-a-07",
		Model:      "Pixel 7",
		Group:      "rack-a",
		Status:     api.DeviceBusy,
		Battery:    64,
		Task:       "warmup #12",
		LastSeenAt: now.Add(-90 * time.Second),
	}
	accounts := []api.Account{
		{ID: "a1", Handle: "@sunrise.shop", Platform: api.PlatformTikTok, DeviceID: d.ID, Followers: 12400},
		{ID: "a2", Handle: "@elsewhere", DeviceID: "other"},
	}
	m := New(d, accounts)
	m.Now = func() time.Time { return now }

	v := m.View()
	for _, want := range []string{"rack-a-07", "Pixel 7", "busy", "warmup #12", "64%", "1m 30s ago", "Accounts (1)", "@sunrise.shop", "12.4k"} {
		if !strings.Contains(v, want) {
			t.Errorf("detail view missing %q", want)
		}
	}
	if strings.Contains(v, "@elsewhere") {
		t.Error("accounts of other devices should be filtered out")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s ago"},
		{125 * time.Second, "2m 5s ago"},
		{3*time.Hour + 4*time.Minute, "3h 4m ago"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(&api.Device{ID: "abcdef123456"}); got != "abcdef12" {
		t.Errorf("DisplayName = %q", got)
	}
}

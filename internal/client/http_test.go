package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acqdash/console/internal/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/devices", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		page := api.Page[api.Device]{
			Items:   []api.Device{{ID: "d-1", Name: "Pixel 7", Status: api.DeviceOnline}},
			Page:    2,
			PerPage: 1,
			Total:   3,
			HasMore: true,
		}
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/api/devices/d-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.Device{ID: "d-1", Battery: 80})
	})
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]api.Account{{ID: "a-1", Handle: "@one"}, {ID: "a-2", Handle: "@two"}})
	})
	mux.HandleFunc("/api/scenarios", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClientListDevices(t *testing.T) {
	srv := newBackend(t)
	c := NewHTTPClient(srv.URL, "tok", time.Second, zerolog.Nop())

	page, err := c.ListDevices(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Items, 1)
	assert.Equal(t, api.DeviceOnline, page.Items[0].Status)
}

func TestHTTPClientUnauthorized(t *testing.T) {
	srv := newBackend(t)
	c := NewHTTPClient(srv.URL, "wrong", time.Second, zerolog.Nop())

	_, err := c.ListDevices(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClientGetDeviceAndAccounts(t *testing.T) {
	srv := newBackend(t)
	c := NewHTTPClient(srv.URL, "", 0, zerolog.Nop())

	d, err := c.GetDevice(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, 80, d.Battery)

	accounts, err := c.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestHTTPClientServerError(t *testing.T) {
	srv := newBackend(t)
	c := NewHTTPClient(srv.URL, "", time.Second, zerolog.Nop())

	_, err := c.ListScenarios(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /api/scenarios: 500 boom")
}

func TestHTTPClientMediaURL(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:8080", "", time.Second, zerolog.Nop())

	tests := []struct {
		ref  string
		want string
	}{
		{"/media/s-1.png", "http://127.0.0.1:8080/media/s-1.png"},
		{"media/s-2.png", "http://127.0.0.1:8080/media/s-2.png"},
		{"https://cdn.example.com/x.webp", "https://cdn.example.com/x.webp"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.MediaURL(tt.ref))
	}
}

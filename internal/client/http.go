// Package client provides the REST and WebSocket clients for the acquisition
// backend.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/acqdash/console/internal/api"
	"github.com/rs/zerolog"
)

// ErrUnauthorized is returned when the backend rejects the token.
var ErrUnauthorized = errors.New("unauthorized")

// HTTPClient makes REST calls to the backend.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "http").Logger(),
	}
}

// ListDevices fetches one page of /api/devices. Pages are 1-based.
func (c *HTTPClient) ListDevices(ctx context.Context, page, perPage int) (*api.Page[api.Device], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out api.Page[api.Device]
	if err := c.get(ctx, "/api/devices?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDevice fetches /api/devices/{id}.
func (c *HTTPClient) GetDevice(ctx context.Context, id string) (*api.Device, error) {
	var d api.Device
	if err := c.get(ctx, "/api/devices/"+url.PathEscape(id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListAccounts fetches /api/accounts.
func (c *HTTPClient) ListAccounts(ctx context.Context) ([]api.Account, error) {
	var out []api.Account
	if err := c.get(ctx, "/api/accounts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListScenarios fetches /api/scenarios.
func (c *HTTPClient) ListScenarios(ctx context.Context) ([]api.Scenario, error) {
	var out []api.Scenario
	if err := c.get(ctx, "/api/scenarios", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MediaURL resolves a media reference against the base URL. Absolute URLs
// are returned unchanged.
func (c *HTTPClient) MediaURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("GET")

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("GET %s: %w", path, ErrUnauthorized)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

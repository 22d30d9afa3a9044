package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/acqdash/console/internal/api"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// WSClient manages the WebSocket connection that streams device updates.
type WSClient struct {
	url   string
	token string
	log   zerolog.Logger

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes (ping, resync, auth)
	conn    *websocket.Conn
	seq     uint64
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client that connects to the given WebSocket URL.
func NewWSClient(url, token string, log zerolog.Logger) *WSClient {
	return &WSClient{
		url:   url,
		token: token,
		log:   log.With().Str("component", "ws").Logger(),
	}
}

// --- Bubble Tea messages ---

// WSConnectedMsg is sent when the WebSocket connects.
type WSConnectedMsg struct{}

// WSDisconnectedMsg is sent when the connection drops.
type WSDisconnectedMsg struct{ Err error }

// WSHelloMsg delivers the connection greeting with current totals.
type WSHelloMsg struct{ Payload api.HelloPayload }

// WSDeviceDeltaMsg delivers devices whose status changed.
type WSDeviceDeltaMsg struct{ Payload api.DeviceDeltaPayload }

// WSErrorMsg wraps a server-side error.
type WSErrorMsg struct{ Payload api.ErrorPayload }

// Listen returns a Bubble Tea command that connects and dispatches messages.
// It reconnects automatically on disconnect.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
			if err != nil {
				c.log.Warn().Err(err).Dur("retry", delay).Msg("dial failed")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			// Authenticate if token is set. No write mutex needed here
			// because the connection isn't shared yet (not stored in c.conn).
			if c.token != "" {
				auth := api.ControlMessage{Type: api.MsgAuth, Token: c.token}
				if err := conn.WriteJSON(auth); err != nil {
					conn.Close()
					continue
				}
			}

			// Cancel any previous ping goroutine.
			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.seq = 0
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			c.log.Info().Str("url", c.url).Msg("connected")
			return WSConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads messages from the connection.
// It should be started after receiving WSConnectedMsg and re-issued after
// every message it returns.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				c.log.Warn().Err(err).Msg("disconnected")
				return WSDisconnectedMsg{Err: err}
			}

			var msg api.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				c.log.Debug().Err(err).Msg("skipping malformed message")
				continue
			}

			c.mu.Lock()
			c.seq = msg.Seq
			c.mu.Unlock()

			if teaMsg := c.dispatch(msg); teaMsg != nil {
				return teaMsg
			}
		}
	}
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Resync asks the server to resend its greeting.
func (c *WSClient) Resync() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(api.ControlMessage{Type: api.MsgResync})
}

// Seq returns the last seen sequence number.
func (c *WSClient) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Close drops the current connection, if any.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingCtx != nil {
		c.pingCtx()
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *WSClient) dispatch(msg api.Message) tea.Msg {
	switch msg.Type {
	case api.MsgHello:
		var p api.HelloPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSHelloMsg{Payload: p}
		}
	case api.MsgDeviceDelta:
		var p api.DeviceDeltaPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSDeviceDeltaMsg{Payload: p}
		}
	case api.MsgError:
		var p api.ErrorPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSErrorMsg{Payload: p}
		}
	}
	return nil
}

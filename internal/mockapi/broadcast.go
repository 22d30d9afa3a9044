package mockapi

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acqdash/console/internal/api"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrTooManyConnections is returned by AddClient once the limit is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const sendBuffer = 64

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Broadcaster fans device changes out to every connected client. Changes are
// coalesced per device and flushed at most once per throttle period.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	store    *Store
	throttle time.Duration
	maxConns int
	seq      atomic.Uint64
	log      zerolog.Logger

	flushMu    sync.Mutex
	pending    map[string]api.Device
	order      []string
	flushTimer *time.Timer
}

// NewBroadcaster creates a broadcaster. maxConns <= 0 means unlimited.
func NewBroadcaster(store *Store, throttle time.Duration, maxConns int, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		throttle: throttle,
		maxConns: maxConns,
		pending:  make(map[string]api.Device),
		log:      log.With().Str("component", "broadcast").Logger(),
	}
}

// AddClient registers conn and greets it.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	c := newClient(conn)
	b.clients[c] = true
	b.mu.Unlock()

	b.SendHello(c)
	return c, nil
}

// SendHello greets one client with the current totals.
func (b *Broadcaster) SendHello(c *client) {
	hello := b.store.Hello()
	hello.ServerAt = time.Now().UTC()
	data, err := b.encode(api.MsgHello, hello)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client too slow, drop the greeting
	}
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// QueueUpdate schedules devices for the next flush. A device queued twice
// before a flush is sent once, in its latest state.
func (b *Broadcaster) QueueUpdate(devices []api.Device) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	for _, d := range devices {
		if _, ok := b.pending[d.ID]; !ok {
			b.order = append(b.order, d.ID)
		}
		b.pending[d.ID] = d
	}

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

// SendError broadcasts a server-side error.
func (b *Broadcaster) SendError(code, message string) {
	b.broadcast(api.MsgError, api.ErrorPayload{Code: code, Message: message})
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	devices := make([]api.Device, 0, len(b.order))
	for _, id := range b.order {
		devices = append(devices, b.pending[id])
	}
	b.pending = make(map[string]api.Device)
	b.order = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(devices) == 0 {
		return
	}
	b.broadcast(api.MsgDeviceDelta, api.DeviceDeltaPayload{
		Devices: devices,
		Counts:  b.store.Counts(),
	})
}

func (b *Broadcaster) broadcast(typ api.MessageType, payload any) {
	data, err := b.encode(typ, payload)
	if err != nil {
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			b.log.Warn().Msg("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) encode(typ api.MessageType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(typ)).Msg("marshal payload")
		return nil, err
	}
	return json.Marshal(api.Message{Type: typ, Seq: b.seq.Add(1), Payload: raw})
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client and drops pending updates.
func (b *Broadcaster) Close() {
	b.flushMu.Lock()
	if b.flushTimer != nil {
		b.flushTimer.Stop()
		b.flushTimer = nil
	}
	b.pending = make(map[string]api.Device)
	b.order = nil
	b.flushMu.Unlock()

	b.mu.Lock()
	for c := range b.clients {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

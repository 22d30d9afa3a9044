package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/acqdash/console/internal/api"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
	authTimeout    = 5 * time.Second
	tokenHeader    = "X-Acqdash-Token"
)

// ServerOptions configures the HTTP surface.
type ServerOptions struct {
	// Token, when set, is required on every request except /metrics.
	Token          string
	AllowedOrigins []string
	// Latency is added to every REST response to make loading states visible.
	Latency time.Duration
}

// Server exposes the store over REST and the broadcaster over /ws.
type Server struct {
	store          *Store
	broadcaster    *Broadcaster
	opts           ServerOptions
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	log            zerolog.Logger
}

func NewServer(store *Store, broadcaster *Broadcaster, opts ServerOptions, log zerolog.Logger) *Server {
	s := &Server{
		store:          store,
		broadcaster:    broadcaster,
		opts:           opts,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		registry:       prometheus.NewRegistry(),
		log:            log.With().Str("component", "server").Logger(),
	}

	for _, origin := range opts.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acqdash_mock",
		Name:      "http_requests_total",
		Help:      "REST requests by route and status code.",
	}, []string{"route", "code"})
	s.registry.MustRegister(
		s.requests,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "acqdash_mock",
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients.",
		}, func() float64 { return float64(broadcaster.ClientCount()) }),
	)
	return s
}

// Handler returns the routed handler with security headers applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/devices", s.instrument("devices", s.handleDevices))
	mux.HandleFunc("GET /api/devices/{id}", s.instrument("device", s.handleDevice))
	mux.HandleFunc("GET /api/accounts", s.instrument("accounts", s.handleAccounts))
	mux.HandleFunc("GET /api/scenarios", s.instrument("scenarios", s.handleScenarios))
	mux.HandleFunc("GET /media/{name}", s.instrument("media", s.handleMedia))
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return securityHeaders(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.broadcaster.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page", 1)
	if err != nil || page < 1 {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	perPage, err := intParam(q, "per_page", defaultPerPage)
	if err != nil || perPage < 1 || perPage > maxPerPage {
		http.Error(w, "invalid per_page", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.store.ListDevices(page, perPage))
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.store.GetDevice(r.PathValue("id"))
	if !ok {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	writeJSON(w, d)
}

func (s *Server) handleAccounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.store.Accounts())
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.store.Scenarios())
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !strings.HasSuffix(name, ".png") || strings.HasPrefix(name, MissingMediaPrefix) {
		http.Error(w, "media not found", http.StatusNotFound)
		return
	}
	data, err := CoverPNG(strings.TrimSuffix(name, ".png"))
	if err != nil {
		s.log.Error().Err(err).Str("name", name).Msg("encode cover")
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	preauthorized := s.authorize(r)

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws upgrade")
		return
	}

	// Clients that cannot set headers authenticate with their first frame.
	if !preauthorized && !s.awaitAuth(conn) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("ws auth rejected")
		reject(conn, websocket.ClosePolicyViolation, "unauthorized")
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws client rejected")
		reject(conn, websocket.CloseTryAgainLater, err.Error())
		return
	}
	s.log.Info().Str("remote", r.RemoteAddr).Msg("ws client connected")

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			s.log.Info().Str("remote", r.RemoteAddr).Msg("ws client disconnected")
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ctrl api.ControlMessage
			if err := json.Unmarshal(data, &ctrl); err != nil {
				continue
			}
			switch ctrl.Type {
			case api.MsgResync:
				s.broadcaster.SendHello(c)
			case api.MsgAuth:
				// Already authenticated; a repeated auth frame is harmless.
			}
		}
	}()
}

// awaitAuth reads one control frame and checks its token.
func (s *Server) awaitAuth(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var ctrl api.ControlMessage
	if err := conn.ReadJSON(&ctrl); err != nil {
		return false
	}
	return ctrl.Type == api.MsgAuth && ctrl.Token == s.opts.Token
}

func reject(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
	conn.Close()
}

// instrument enforces auth, applies the configured latency and counts the
// response.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}()

		if !s.authorize(r) {
			http.Error(rec, "unauthorized", http.StatusUnauthorized)
			return
		}
		if s.opts.Latency > 0 {
			select {
			case <-time.After(s.opts.Latency):
			case <-r.Context().Done():
				return
			}
		}
		next(rec, r)
	}
}

func (s *Server) authorize(r *http.Request) bool {
	if s.opts.Token == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.opts.Token {
		return true
	}

	if r.Header.Get(tokenHeader) == s.opts.Token {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.opts.Token {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

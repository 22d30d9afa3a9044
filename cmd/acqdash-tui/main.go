package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/acqdash/console/internal/app"
	"github.com/acqdash/console/internal/client"
	"github.com/acqdash/console/internal/config"
	"github.com/acqdash/console/internal/media"
	"github.com/acqdash/console/internal/telemetry"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// version is set with -ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	config   string
	url      string
	token    string
	logLevel string
	logFile  string
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "acqdash-tui",
		Version:       version,
		Short:         "Terminal console for the acquisition device fleet",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "acqdash.yaml", "path to config file (watched for changes)")
	cmd.Flags().StringVar(&f.url, "url", "", "backend base URL, overrides client.url")
	cmd.Flags().StringVar(&f.token, "token", "", "auth token, overrides client.token")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level, overrides log.level")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "log file, overrides log.file")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, f flags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("url") {
		cfg.Client.URL = f.url
	}
	if cmd.Flags().Changed("token") {
		cfg.Client.Token = f.token
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	metrics := telemetry.NewMetrics(cfg.Metrics.Enabled)
	if metrics.Enabled() {
		go serveMetrics(ctx, cfg.Metrics.Listen, metrics, logger)
	}

	watcher, err := config.Watch(ctx, f.config, logger)
	if err != nil {
		// Hot reload is optional.
		logger.Warn().Err(err).Str("path", f.config).Msg("config watch disabled")
	} else {
		defer watcher.Close()
	}

	wsURL, err := deriveWSURL(cfg.Client.URL)
	if err != nil {
		return err
	}

	m := app.New(app.Deps{
		Config:  cfg,
		API:     client.NewHTTPClient(cfg.Client.URL, cfg.Client.Token, cfg.Client.RequestTimeout, logger),
		WS:      client.NewWSClient(wsURL, cfg.Client.Token, logger),
		Loader:  media.NewHTTPLoader(cfg.Client.Token, cfg.Client.RequestTimeout, logger),
		Watcher: watcher,
		Metrics: metrics,
		Log:     logger,
	})

	logger.Info().Str("url", cfg.Client.URL).Str("ws", wsURL).Msg("starting console")
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// setupLogging writes to cfg.File. The terminal belongs to the UI, so with
// no file configured logs are discarded.
func setupLogging(cfg config.LogConfig) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}
	if cfg.File == "" {
		return zerolog.New(io.Discard), func() {}, nil
	}

	fh, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(fh).Level(level).With().Timestamp().Logger()
	return logger, func() { fh.Close() }, nil
}

func serveMetrics(ctx context.Context, addr string, m *telemetry.Metrics, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server")
	}
}

// deriveWSURL converts http://host:port/prefix to ws://host:port/prefix/ws.
func deriveWSURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("client url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

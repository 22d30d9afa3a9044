package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acqdash/console/internal/config"
	"github.com/acqdash/console/internal/mockapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set with -ldflags at build time.
var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("mock backend failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       int
		devices    int
		seed       int64
		token      string
		logLevel   string
		latency    time.Duration
	)

	cmd := &cobra.Command{
		Use:          "acqdash-mock",
		Version:      version,
		Short:        "Seeded in-memory backend for the acquisition console",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			srvCfg := cfg.Server
			if cmd.Flags().Changed("port") {
				srvCfg.Port = port
			}
			if cmd.Flags().Changed("devices") {
				srvCfg.Devices = devices
			}
			if cmd.Flags().Changed("seed") {
				srvCfg.Seed = seed
			}
			if cmd.Flags().Changed("token") {
				srvCfg.Token = token
			}
			if err := setupLogging(logLevel); err != nil {
				return err
			}
			return serve(cmd.Context(), srvCfg, latency)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "acqdash.yaml", "path to config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	cmd.Flags().IntVar(&devices, "devices", 0, "override server.devices")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override server.seed")
	cmd.Flags().StringVar(&token, "token", "", "override server.token")
	cmd.Flags().DurationVar(&latency, "latency", 0, "delay added to every REST response")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")
	return cmd
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

func serve(ctx context.Context, cfg config.ServerConfig, latency time.Duration) error {
	store := mockapi.NewStore()
	broadcaster := mockapi.NewBroadcaster(store, cfg.BroadcastThrottle, cfg.MaxConnections, log.Logger)

	gen := mockapi.NewGenerator(store, broadcaster, mockapi.GeneratorConfig{
		Devices:      cfg.Devices,
		Accounts:     cfg.Accounts,
		Scenarios:    cfg.Scenarios,
		Seed:         cfg.Seed,
		TickInterval: cfg.TickInterval,
	}, log.Logger)
	gen.Start(ctx)

	server := mockapi.NewServer(store, broadcaster, mockapi.ServerOptions{
		Token:          cfg.Token,
		AllowedOrigins: cfg.AllowedOrigins,
		Latency:        latency,
	}, log.Logger)
	return server.ListenAndServe(ctx, cfg.Addr())
}

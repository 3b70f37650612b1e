// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/camrec/internal/api"
	"github.com/ManuGH/camrec/internal/artifact"
	"github.com/ManuGH/camrec/internal/camera"
	"github.com/ManuGH/camrec/internal/config"
	"github.com/ManuGH/camrec/internal/daemon"
	"github.com/ManuGH/camrec/internal/health"
	camlog "github.com/ManuGH/camrec/internal/log"
	"github.com/ManuGH/camrec/internal/recorder"
	"github.com/ManuGH/camrec/internal/registry"
	"github.com/ManuGH/camrec/internal/resilience"
	"github.com/ManuGH/camrec/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const breakerResetTimeout = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	camlog.Configure(camlog.Config{Level: "info", Service: "camrec", Version: version})
	logger := camlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(*configPath, version).Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingCredential) {
			logger.Fatal().Str("event", "config.missing_token").Msg("could not find CAMREC_REFRESH_TOKEN or RING_REFRESH_TOKEN")
		}
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	camlog.Configure(camlog.Config{Level: cfg.LogLevel, Service: "camrec", Version: cfg.Version})
	logger = camlog.WithComponent("daemon")
	logger.Info().
		Str("event", "config.loaded").
		Str("config_path", *configPath).
		Str(camlog.FieldBaseURL, cfg.UpstreamURL).
		Str("data_dir", cfg.DataDir).
		Msg("token extracted from environment (omitted)")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "camrec",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialize tracing")
	}

	client, err := camera.NewClient(camera.ClientConfig{
		BaseURL:      cfg.UpstreamURL,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		RefreshToken: cfg.RefreshToken,
		RPS:          cfg.UpstreamRPS,
		MaxRecording: time.Duration(cfg.MaxDuration) * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "camera.client_failed").Msg("failed to build camera client")
	}

	store, err := artifact.NewStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "artifact.store_failed").Msg("failed to open data directory")
	}

	reg := registry.New(client, store)
	breaker := resilience.NewCircuitBreaker("upstream", cfg.BreakerThreshold, breakerResetTimeout,
		resilience.WithFailureFilter(camera.IsTransient),
		resilience.WithPanicRecovery(true),
	)
	coord := recorder.New(reg, client, store, recorder.WithBreaker(breaker))

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewReadinessChecker("registry", reg.Ready))
	hm.RegisterChecker(health.NewDirChecker("data_dir", cfg.DataDir))
	hm.RegisterChecker(health.NewBreakerChecker("upstream", breaker))

	tracingService := ""
	if cfg.TracingEnabled {
		tracingService = "camrec-api"
	}
	srv := api.New(api.Config{
		MaxDuration:    cfg.MaxDuration,
		RateLimitRPM:   cfg.RateLimitRPM,
		TracingService: tracingService,
	}, reg, coord, store, hm)

	mgr, err := daemon.NewManager(config.ServerConfigFor(cfg), daemon.Deps{
		Logger:         logger,
		APIHandler:     srv.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.MetricsListen,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.init_failed").Msg("failed to create daemon manager")
	}
	// LIFO: recordings drain before spans are flushed.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("recorder", coord.Close)

	app := daemon.NewApp(logger, mgr, daemon.Task{Name: "device enumeration", Run: reg.Initialize})
	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("camrec stopped")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("camrec stopped")
}

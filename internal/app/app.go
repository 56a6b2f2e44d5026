// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/proxyfetch/internal/api"
	"github.com/JakeFAU/proxyfetch/internal/config"
	"github.com/JakeFAU/proxyfetch/internal/fetch"
	collyfetcher "github.com/JakeFAU/proxyfetch/internal/fetcher/colly"
	"github.com/JakeFAU/proxyfetch/internal/id/uuid"
	"github.com/JakeFAU/proxyfetch/internal/policy/ratelimit"
	"github.com/JakeFAU/proxyfetch/internal/proxy"
	"github.com/JakeFAU/proxyfetch/internal/telemetry"
	"github.com/JakeFAU/proxyfetch/internal/useragent"
)

// App holds the shared services built once at startup. The proxy pool and
// user-agent list are read-only after construction, so every component may
// be used from concurrent batches.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	proxies      *proxy.Pool
	agents       *useragent.Rotator
	orchestrator *fetch.Orchestrator
	server       *api.Server
	shutdownOtel telemetry.ShutdownFunc
}

// New wires the fetch pipeline and HTTP server from cfg. It fails fast on a
// malformed proxy endpoint or tracing setup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing application services")

	shutdownOtel, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		Exporter:       cfg.Tracing.Exporter,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	proxies, err := proxy.New(cfg.Proxy.Datacenter, logger.Named("proxy"))
	if err != nil {
		return nil, fmt.Errorf("init proxy pool: %w", err)
	}
	agents := useragent.New(cfg.UserAgents)
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Fetch.DomainRPS,
		DefaultBurst: cfg.Fetch.DomainBurst,
	})
	attempter := collyfetcher.New(collyfetcher.Config{
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
		MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
	})
	if cfg.Fetch.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled for outbound fetches")
	}

	runner := fetch.NewRunner(attempter, proxies, agents, limiter, logger.Named("runner"))
	orchestrator := fetch.NewOrchestrator(runner, uuid.New(), fetch.BatchConfig{
		MaxConcurrency: cfg.Fetch.MaxConcurrency,
		MaxRetries:     cfg.Fetch.MaxRetries,
		Timeout:        cfg.FetchTimeout(),
	}, logger.Named("batch"))
	server := api.NewServer(orchestrator, cfg, logger.Named("api"))

	logger.Info("application services initialized",
		zap.Int("datacenter_proxies", proxies.Len()),
		zap.Int("user_agents", agents.Len()),
		zap.Int("max_retries", cfg.Fetch.MaxRetries),
		zap.Duration("timeout", cfg.FetchTimeout()),
		zap.Int("max_concurrency", cfg.Fetch.MaxConcurrency),
	)

	return &App{
		cfg:          cfg,
		logger:       logger,
		proxies:      proxies,
		agents:       agents,
		orchestrator: orchestrator,
		server:       server,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Orchestrator returns the batch orchestrator.
func (a *App) Orchestrator() *fetch.Orchestrator {
	return a.orchestrator
}

// Server returns the HTTP API server.
func (a *App) Server() *api.Server {
	return a.server
}

// Close flushes pending spans and buffered logs. Fetch resources are
// per-attempt and need no teardown.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownOtel(ctx); err != nil {
		a.logger.Warn("error shutting down tracing", zap.Error(err))
	}
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms
}

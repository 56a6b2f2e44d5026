package fetch

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/proxyfetch/internal/metrics"
)

// BatchConfig holds the process-wide defaults applied to every batch.
type BatchConfig struct {
	// MaxConcurrency caps in-flight URL sequences. Zero means unbounded.
	MaxConcurrency int
	MaxRetries     int
	Timeout        time.Duration
}

// Orchestrator fans a batch of URLs out to concurrent Runner sequences and
// collects their results in input order.
type Orchestrator struct {
	runner *Runner
	ids    IDGenerator
	cfg    BatchConfig
	logger *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. ids may be nil.
func NewOrchestrator(runner *Runner, ids IDGenerator, cfg BatchConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Orchestrator{
		runner: runner,
		ids:    ids,
		cfg:    cfg,
		logger: logger,
	}
}

// Run fetches every URL concurrently and returns once all of them reach a
// terminal state. The only error is ErrEmptyBatch; per-URL failures are
// reported inside the Summary.
func (o *Orchestrator) Run(ctx context.Context, req BatchRequest) (Summary, error) {
	if len(req.URLs) == 0 {
		return Summary{}, ErrEmptyBatch
	}

	batchID := o.newBatchID()
	logger := o.logger.With(zap.String("batch_id", batchID))
	proxyType := resolveProxyType(req.ProxyType, logger)
	maxRetries := valueOrDefault(req.MaxRetries, o.cfg.MaxRetries)
	timeout := valueOrDefault(req.Timeout, o.cfg.Timeout)

	ctx, span := tracer().Start(ctx, "fetch.batch", trace.WithAttributes(
		attribute.String("fetch.batch_id", batchID),
		attribute.Int("fetch.urls", len(req.URLs)),
		attribute.String("fetch.proxy_type", proxyType),
	))
	defer span.End()

	logger.Info("batch started",
		zap.Int("urls", len(req.URLs)),
		zap.String("proxy_type", proxyType),
		zap.Int("max_retries", maxRetries),
		zap.Duration("timeout", timeout),
	)

	start := time.Now()
	results := make([]Result, len(req.URLs))
	var g errgroup.Group
	if o.cfg.MaxConcurrency > 0 {
		g.SetLimit(o.cfg.MaxConcurrency)
	}
	for i, url := range req.URLs {
		g.Go(func() error {
			results[i] = o.runner.Run(ctx, Request{
				URL:        url,
				MaxRetries: maxRetries,
				Timeout:    timeout,
			})
			return nil
		})
	}
	_ = g.Wait() // sequences never return errors

	total := time.Since(start)
	summary := Summarize(batchID, results, total, proxyType)
	metrics.ObserveBatch(summary.Total, total)
	span.SetAttributes(
		attribute.Int("fetch.successful", summary.Successful),
		attribute.Int("fetch.failed", summary.Failed),
	)
	logger.Info("batch finished",
		zap.Int("total", summary.Total),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", total),
	)
	return summary, nil
}

func (o *Orchestrator) newBatchID() string {
	if o.ids == nil {
		return ""
	}
	id, err := o.ids.NewID()
	if err != nil {
		o.logger.Warn("batch id generation failed", zap.Error(err))
		return ""
	}
	return id
}

func resolveProxyType(requested string, logger *zap.Logger) string {
	requested = strings.TrimSpace(strings.ToLower(requested))
	if requested != "" && requested != ProxyTypeDatacenter {
		logger.Warn("unsupported proxy type requested, using datacenter",
			zap.String("requested", requested))
	}
	return ProxyTypeDatacenter
}

func valueOrDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

package fetch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/proxyfetch/internal/metrics"
)

// Runner drives the retry state machine for a single URL. Every attempt
// draws a fresh proxy and a fresh user agent; nothing is shared between
// sequences except the read-only selectors and the limiter.
type Runner struct {
	attempter Attempter
	proxies   ProxySelector
	agents    UserAgentSelector
	limiter   Limiter
	logger    *zap.Logger
}

// NewRunner constructs a Runner. limiter may be nil.
func NewRunner(
	attempter Attempter,
	proxies ProxySelector,
	agents UserAgentSelector,
	limiter Limiter,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		attempter: attempter,
		proxies:   proxies,
		agents:    agents,
		limiter:   limiter,
		logger:    logger,
	}
}

// Run executes attempts until the policy reaches a terminal state and
// returns exactly one Result.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	policy := NewPolicy(req.MaxRetries)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, span := tracer().Start(ctx, "fetch.url", trace.WithAttributes(
		attribute.String("url.full", req.URL),
		attribute.Int("fetch.max_attempts", policy.MaxAttempts),
	))
	defer span.End()

	metrics.IncInFlight()
	defer metrics.DecInFlight()

	start := time.Now()
	for n := 1; ; n++ {
		attempt, proxyUsed := r.nextAttempt(n, req.URL, timeout)
		outcome := r.try(ctx, attempt)
		state := policy.Transition(n, outcome)
		r.logAttempt(attempt, outcome, state)

		if state == StateAttempting && ctx.Err() != nil {
			outcome = RetryableFailure{Reason: ReasonCanceled}
			state = StateFailedExhausted
		}
		if !state.Terminal() {
			continue
		}

		elapsed := time.Since(start)
		if failure, ok := outcome.(RetryableFailure); ok {
			outcome = ExhaustedRetries{
				LastReason:     failure.Reason,
				LastStatusCode: failure.StatusCode,
				Attempts:       n,
				Elapsed:        elapsed,
			}
		}
		result := NewResult(req.URL, outcome, n, elapsed, proxyUsed)
		bytesFetched := 0
		if result.Content != nil {
			bytesFetched = len(*result.Content)
		}
		metrics.ObserveResult(req.URL, result.Success, bytesFetched)
		span.SetAttributes(
			attribute.Int("fetch.attempts", n),
			attribute.Bool("fetch.success", result.Success),
			attribute.String("fetch.proxy_used", proxyUsed),
		)
		if result.Error != nil {
			span.SetStatus(codes.Error, *result.Error)
		}
		return result
	}
}

func (r *Runner) nextAttempt(n int, url string, timeout time.Duration) (Attempt, string) {
	attempt := Attempt{
		Number:    n,
		URL:       url,
		UserAgent: r.agents.Select(),
		Timeout:   timeout,
	}
	proxyUsed := ProxyTypeNone
	if r.proxies != nil {
		if p, ok := r.proxies.Select(); ok {
			attempt.Proxy = &p
			proxyUsed = ProxyTypeDatacenter
		}
	}
	metrics.ObserveProxySelection(proxyUsed)
	return attempt, proxyUsed
}

func (r *Runner) try(ctx context.Context, attempt Attempt) Outcome {
	ctx, span := tracer().Start(ctx, "fetch.attempt", trace.WithAttributes(
		attribute.Int("fetch.attempt", attempt.Number),
		attribute.Bool("fetch.proxied", attempt.Proxy != nil),
	))
	defer span.End()

	if r.limiter != nil {
		start := time.Now()
		if err := r.limiter.Wait(ctx, attempt.URL); err != nil {
			span.RecordError(err)
			return RetryableFailure{Reason: err.Error(), Elapsed: time.Since(start)}
		}
	}
	outcome := r.attempter.Attempt(ctx, attempt)
	metrics.ObserveAttempt(Label(outcome))
	span.SetAttributes(attribute.String("fetch.outcome", Label(outcome)))
	return outcome
}

func (r *Runner) logAttempt(attempt Attempt, outcome Outcome, next State) {
	fields := []zap.Field{
		zap.String("url", attempt.URL),
		zap.Int("attempt", attempt.Number),
		zap.String("outcome", Label(outcome)),
		zap.String("next_state", next.String()),
		zap.Duration("elapsed", outcome.elapsed()),
	}
	if attempt.Proxy != nil {
		fields = append(fields, zap.String("proxy", attempt.Proxy.Redacted()))
	}
	switch o := outcome.(type) {
	case Success:
		r.logger.Info("attempt succeeded", append(fields, zap.Int("status", o.StatusCode))...)
	case ClientError:
		r.logger.Warn("attempt failed with client error", append(fields, zap.Int("status", o.StatusCode))...)
	case RetryableFailure:
		fields = append(fields, zap.String("reason", o.Reason))
		if o.StatusCode != 0 {
			fields = append(fields, zap.Int("status", o.StatusCode))
		}
		r.logger.Warn("attempt failed", fields...)
	}
}

// NewResult converts a terminal Outcome into the wire Result.
func NewResult(url string, outcome Outcome, attempts int, elapsed time.Duration, proxyUsed string) Result {
	res := Result{
		URL:            url,
		ElapsedSeconds: elapsed.Seconds(),
		ProxyUsed:      proxyUsed,
		Attempts:       attempts,
	}
	switch o := outcome.(type) {
	case Success:
		res.Success = true
		res.StatusCode = intPtr(o.StatusCode)
		res.Content = stringPtr(o.Body)
	case ClientError:
		res.StatusCode = intPtr(o.StatusCode)
		res.Error = stringPtr(o.Message)
	case ExhaustedRetries:
		if o.LastStatusCode != 0 {
			res.StatusCode = intPtr(o.LastStatusCode)
		}
		res.Error = stringPtr(o.Error())
	default:
		res.Error = stringPtr(fmt.Sprintf("unexpected terminal outcome %T", outcome))
	}
	return res
}

func intPtr(v int) *int {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

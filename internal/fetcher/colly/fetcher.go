// Package collyfetcher implements fetch.Attempter using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/proxyfetch/internal/fetch"
)

const defaultMaxBodyBytes = 10 * 1024 * 1024

// Config controls collector behavior.
type Config struct {
	// InsecureSkipVerify disables TLS certificate validation for every
	// attempt. Off by default.
	InsecureSkipVerify bool
	MaxBodyBytes       int
}

// Fetcher performs one GET per attempt with a fresh collector and transport,
// so proxy and user-agent choices never leak between concurrent attempts.
type Fetcher struct {
	cfg Config
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{cfg: cfg}
}

// Attempt executes a single HTTP GET and classifies the result.
func (f *Fetcher) Attempt(ctx context.Context, attempt fetch.Attempt) fetch.Outcome {
	start := time.Now()
	if attempt.Timeout <= 0 {
		attempt.Timeout = fetch.DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, attempt.Timeout)
	defer cancel()

	transport := f.newTransport(attempt.Proxy)
	defer transport.CloseIdleConnections()

	collector := f.buildCollector(attemptCtx, attempt, transport)
	var resp *colly.Response
	collector.OnResponse(func(r *colly.Response) {
		resp = r
	})

	err := collector.Visit(attempt.URL)
	return classify(resp, err, time.Since(start))
}

func (f *Fetcher) buildCollector(ctx context.Context, attempt fetch.Attempt, transport http.RoundTripper) *colly.Collector {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(f.cfg.MaxBodyBytes),
		colly.StdlibContext(ctx),
	)
	if attempt.UserAgent != "" {
		c.UserAgent = attempt.UserAgent
	}
	c.IgnoreRobotsTxt = true
	// 4xx/5xx bodies must reach OnResponse so they can be classified.
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(attempt.Timeout)
	c.WithTransport(transport)
	return c
}

func (f *Fetcher) newTransport(proxy *fetch.ProxyEndpoint) *http.Transport {
	t := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	if f.cfg.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via fetch.insecure_skip_verify
	}
	if proxy != nil && proxy.URL != nil {
		t.Proxy = http.ProxyURL(proxy.URL)
	}
	return t
}

func classify(resp *colly.Response, err error, elapsed time.Duration) fetch.Outcome {
	if err != nil {
		if isTimeout(err) {
			return fetch.RetryableFailure{Reason: fetch.ReasonTimeout, Elapsed: elapsed}
		}
		return fetch.RetryableFailure{Reason: err.Error(), Elapsed: elapsed}
	}
	if resp == nil {
		return fetch.RetryableFailure{Reason: "no response received", Elapsed: elapsed}
	}

	code := resp.StatusCode
	switch {
	case code >= http.StatusInternalServerError:
		return fetch.RetryableFailure{Reason: fetch.ReasonServerError, StatusCode: code, Elapsed: elapsed}
	case code >= http.StatusBadRequest:
		return fetch.ClientError{
			StatusCode: code,
			Message:    fmt.Sprintf("HTTP error: %d %s", code, http.StatusText(code)),
			Elapsed:    elapsed,
		}
	case code >= http.StatusOK:
		finalURL := ""
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}
		return fetch.Success{
			StatusCode: code,
			Body:       string(resp.Body),
			FinalURL:   finalURL,
			Elapsed:    elapsed,
		}
	default:
		return fetch.RetryableFailure{
			Reason:     fmt.Sprintf("unexpected status %d", code),
			StatusCode: code,
			Elapsed:    elapsed,
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

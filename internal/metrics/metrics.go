// Package metrics exposes Prometheus collectors for the fetch service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_attempts_total",
			Help: "Total number of HTTP attempts, labeled by classified outcome.",
		},
		[]string{"outcome"},
	)

	fetchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_results_total",
			Help: "Total number of terminal URL results, labeled by site and status.",
		},
		[]string{"site", "status"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_bytes_total",
			Help: "Total number of body bytes returned to callers, labeled by site.",
		},
		[]string{"site"},
	)

	fetchProxySelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_proxy_selections_total",
			Help: "Total number of proxy selections per attempt, labeled by proxy type.",
		},
		[]string{"proxy"},
	)

	fetchBatchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_batch_duration_seconds",
			Help:    "Wall-clock duration of whole batches.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	fetchBatchURLs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_batch_urls",
			Help:    "Number of URLs per batch.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	fetchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetch_inflight_sequences",
			Help: "Number of URL retry sequences currently running.",
		},
	)

	fetchRateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_rate_limit_delay_seconds",
			Help:    "Histogram of per-domain rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveAttempt counts one classified attempt.
func ObserveAttempt(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveResult records the terminal result of one URL.
func ObserveResult(rawURL string, success bool, bytesFetched int) {
	site := SanitizeSite(rawURL)
	status := "failed"
	if success {
		status = "success"
	}
	fetchResultsTotal.WithLabelValues(site, status).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveProxySelection counts the proxy choice made for one attempt.
func ObserveProxySelection(proxyType string) {
	fetchProxySelectionsTotal.WithLabelValues(proxyType).Inc()
}

// ObserveBatch records the size and wall-clock duration of a batch.
func ObserveBatch(urls int, duration time.Duration) {
	fetchBatchURLs.Observe(float64(urls))
	fetchBatchDurationSeconds.Observe(duration.Seconds())
}

// IncInFlight increments the running sequence gauge.
func IncInFlight() {
	fetchInFlight.Inc()
}

// DecInFlight decrements the running sequence gauge.
func DecInFlight() {
	fetchInFlight.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	fetchRateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest records metrics for an API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

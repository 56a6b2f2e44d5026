package fetch

import (
	"errors"
	"net/url"
	"time"
)

// ErrEmptyBatch is returned when a batch is submitted without any URLs.
var ErrEmptyBatch = errors.New("no URLs provided")

// Proxy labels reported on results and summaries.
const (
	ProxyTypeDatacenter = "datacenter"
	ProxyTypeNone       = "none"
)

// Default knobs used when callers leave a value unset.
const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second
)

// Request describes a single URL's retry sequence.
type Request struct {
	URL        string
	MaxRetries int
	Timeout    time.Duration
}

// BatchRequest is the input to Orchestrator.Run.
type BatchRequest struct {
	URLs []string
	// ProxyType is advisory; only "datacenter" is honored.
	ProxyType  string
	MaxRetries int
	Timeout    time.Duration
}

// ProxyEndpoint is an upstream HTTP(S) proxy.
type ProxyEndpoint struct {
	URL *url.URL
}

// String returns the full endpoint, credentials included.
func (p ProxyEndpoint) String() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.String()
}

// Redacted returns the endpoint with any password masked, suitable for logs.
func (p ProxyEndpoint) Redacted() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.Redacted()
}

// Attempt carries the inputs for one HTTP try.
type Attempt struct {
	Number    int
	URL       string
	Proxy     *ProxyEndpoint
	UserAgent string
	Timeout   time.Duration
}

// Result is the externally visible outcome for one URL.
type Result struct {
	URL            string  `json:"url"`
	Success        bool    `json:"success"`
	StatusCode     *int    `json:"status_code,omitempty"`
	Content        *string `json:"content,omitempty"`
	Error          *string `json:"error,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	ProxyUsed      string  `json:"proxy_used"`
	Attempts       int     `json:"attempts"`
}

// Summary aggregates every Result of a batch in input order.
type Summary struct {
	BatchID          string   `json:"batch_id,omitempty"`
	Results          []Result `json:"results"`
	Total            int      `json:"total"`
	Successful       int      `json:"successful"`
	Failed           int      `json:"failed"`
	TotalTimeSeconds float64  `json:"total_time_seconds"`
	ProxyTypeUsed    string   `json:"proxy_type_used"`
}

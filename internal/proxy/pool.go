// Package proxy holds the configured upstream proxy endpoints and hands them
// out at random.
package proxy

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/proxyfetch/internal/fetch"
)

// Pool is an immutable set of proxy endpoints. It is safe for concurrent use.
type Pool struct {
	endpoints []fetch.ProxyEndpoint
	intn      func(n int) int
}

// New parses endpoints and builds a Pool. An empty list is valid and only
// logged; a malformed endpoint is an error.
func New(endpoints []string, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed := make([]fetch.ProxyEndpoint, 0, len(endpoints))
	for _, raw := range endpoints {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		ep, err := ParseEndpoint(raw)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, ep)
	}
	if len(parsed) == 0 {
		logger.Warn("no proxies configured, fetches will proceed without a proxy")
	} else {
		logger.Info("proxy pool ready", zap.Int("endpoints", len(parsed)))
	}
	return &Pool{endpoints: parsed, intn: rand.IntN}, nil
}

// ParseEndpoint parses a proxy connection string. A missing scheme defaults
// to http.
func ParseEndpoint(raw string) (fetch.ProxyEndpoint, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fetch.ProxyEndpoint{}, fmt.Errorf("parse proxy endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return fetch.ProxyEndpoint{}, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return fetch.ProxyEndpoint{}, fmt.Errorf("proxy endpoint %q has no host", u.Redacted())
	}
	return fetch.ProxyEndpoint{URL: u}, nil
}

// ParseList splits a comma-separated endpoint list, dropping blanks.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Select returns a uniformly random endpoint, or false when the pool is empty.
func (p *Pool) Select() (fetch.ProxyEndpoint, bool) {
	if p == nil || len(p.endpoints) == 0 {
		return fetch.ProxyEndpoint{}, false
	}
	return p.endpoints[p.intn(len(p.endpoints))], true
}

// IsEmpty reports whether no endpoints are configured.
func (p *Pool) IsEmpty() bool {
	return p == nil || len(p.endpoints) == 0
}

// Len returns the number of endpoints.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.endpoints)
}

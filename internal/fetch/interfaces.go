package fetch

import "context"

// Attempter executes a single HTTP try and classifies it. Implementations
// never return Go errors; every failure is folded into the Outcome.
type Attempter interface {
	Attempt(ctx context.Context, attempt Attempt) Outcome
}

// ProxySelector hands out a proxy per attempt. ok is false when no proxy is
// configured.
type ProxySelector interface {
	Select() (proxy ProxyEndpoint, ok bool)
	IsEmpty() bool
}

// UserAgentSelector hands out a User-Agent header value per attempt.
type UserAgentSelector interface {
	Select() string
}

// Limiter throttles attempts per target host.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// IDGenerator produces batch IDs.
type IDGenerator interface {
	NewID() (string, error)
}

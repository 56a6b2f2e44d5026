// Package useragent rotates User-Agent header values across attempts.
package useragent

import "math/rand/v2"

// Defaults is the built-in desktop browser list.
var Defaults = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// Rotator picks a User-Agent uniformly at random. It is immutable and safe
// for concurrent use.
type Rotator struct {
	agents []string
	intn   func(n int) int
}

// New builds a Rotator over agents, falling back to Defaults when the list
// has no non-blank entries.
func New(agents []string) *Rotator {
	list := make([]string, 0, len(agents))
	for _, a := range agents {
		if a != "" {
			list = append(list, a)
		}
	}
	if len(list) == 0 {
		list = append(list, Defaults...)
	}
	return &Rotator{agents: list, intn: rand.IntN}
}

// Select returns a random User-Agent.
func (r *Rotator) Select() string {
	return r.agents[r.intn(len(r.agents))]
}

// Len returns the number of candidate agents.
func (r *Rotator) Len() int {
	return len(r.agents)
}

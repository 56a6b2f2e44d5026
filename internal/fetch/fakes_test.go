package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// scriptedAttempter returns outcomes from a per-URL script; the last
// outcome repeats once the script runs out.
type scriptedAttempter struct {
	mu       sync.Mutex
	scripts  map[string][]Outcome
	delays   map[string]time.Duration
	attempts []Attempt
}

func newScriptedAttempter() *scriptedAttempter {
	return &scriptedAttempter{
		scripts: map[string][]Outcome{},
		delays:  map[string]time.Duration{},
	}
}

func (s *scriptedAttempter) script(url string, outcomes ...Outcome) *scriptedAttempter {
	s.scripts[url] = outcomes
	return s
}

func (s *scriptedAttempter) delay(url string, d time.Duration) *scriptedAttempter {
	s.delays[url] = d
	return s
}

func (s *scriptedAttempter) Attempt(ctx context.Context, a Attempt) Outcome {
	s.mu.Lock()
	s.attempts = append(s.attempts, a)
	n := 0
	for _, prev := range s.attempts {
		if prev.URL == a.URL {
			n++
		}
	}
	script := s.scripts[a.URL]
	d := s.delays[a.URL]
	s.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return RetryableFailure{Reason: ReasonTimeout}
		}
	}
	if len(script) == 0 {
		return Success{StatusCode: 200, Body: "default:" + a.URL}
	}
	if n > len(script) {
		n = len(script)
	}
	return script[n-1]
}

func (s *scriptedAttempter) attemptsFor(url string) []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Attempt
	for _, a := range s.attempts {
		if a.URL == url {
			out = append(out, a)
		}
	}
	return out
}

type fakeProxies struct {
	mu        sync.Mutex
	endpoints []ProxyEndpoint
	next      int
}

func newFakeProxies(raw ...string) *fakeProxies {
	p := &fakeProxies{}
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			panic(err)
		}
		p.endpoints = append(p.endpoints, ProxyEndpoint{URL: u})
	}
	return p
}

// Select hands endpoints out round-robin so tests can observe rotation.
func (p *fakeProxies) Select() (ProxyEndpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.endpoints) == 0 {
		return ProxyEndpoint{}, false
	}
	ep := p.endpoints[p.next%len(p.endpoints)]
	p.next++
	return ep, true
}

func (p *fakeProxies) IsEmpty() bool {
	return len(p.endpoints) == 0
}

type fakeAgents struct {
	mu     sync.Mutex
	agents []string
	next   int
}

func (a *fakeAgents) Select() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.agents) == 0 {
		return "fake-agent"
	}
	ua := a.agents[a.next%len(a.agents)]
	a.next++
	return ua
}

type fakeIDGen struct {
	id  string
	err error
}

func (f fakeIDGen) NewID() (string, error) {
	return f.id, f.err
}

type recordingLimiter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (l *recordingLimiter) Wait(_ context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, url)
	return l.err
}

package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/proxyfetch/internal/fetch"
)

func TestAttemptSuccess(t *testing.T) {
	t.Parallel()

	gotUA := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA <- r.UserAgent()
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := New(Config{})
	outcome := f.Attempt(context.Background(), fetch.Attempt{
		Number:    1,
		URL:       srv.URL,
		UserAgent: "test-agent/1.0",
		Timeout:   time.Second,
	})

	success, ok := outcome.(fetch.Success)
	require.True(t, ok, "expected Success, got %#v", outcome)
	require.Equal(t, http.StatusOK, success.StatusCode)
	require.Equal(t, "<html>ok</html>", success.Body)
	require.Equal(t, "test-agent/1.0", <-gotUA)
	require.GreaterOrEqual(t, success.Elapsed, time.Duration(0))
}

func TestAttemptFollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	outcome := New(Config{}).Attempt(context.Background(), fetch.Attempt{URL: srv.URL + "/start", Timeout: time.Second})

	success, ok := outcome.(fetch.Success)
	require.True(t, ok, "expected Success, got %#v", outcome)
	require.Equal(t, "landed", success.Body)
	require.NotEmpty(t, success.FinalURL)
}

func TestAttemptClassifiesStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, o fetch.Outcome)
	}{
		{
			name:   "not found is a client error",
			status: http.StatusNotFound,
			check: func(t *testing.T, o fetch.Outcome) {
				ce, ok := o.(fetch.ClientError)
				require.True(t, ok, "expected ClientError, got %#v", o)
				require.Equal(t, http.StatusNotFound, ce.StatusCode)
				require.Contains(t, ce.Message, "404")
			},
		},
		{
			name:   "too many requests is a client error",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, o fetch.Outcome) {
				_, ok := o.(fetch.ClientError)
				require.True(t, ok, "expected ClientError, got %#v", o)
			},
		},
		{
			name:   "service unavailable is retryable",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, o fetch.Outcome) {
				rf, ok := o.(fetch.RetryableFailure)
				require.True(t, ok, "expected RetryableFailure, got %#v", o)
				require.Equal(t, fetch.ReasonServerError, rf.Reason)
				require.Equal(t, http.StatusServiceUnavailable, rf.StatusCode)
			},
		},
		{
			name:   "no content is a success",
			status: http.StatusNoContent,
			check: func(t *testing.T, o fetch.Outcome) {
				s, ok := o.(fetch.Success)
				require.True(t, ok, "expected Success, got %#v", o)
				require.Equal(t, http.StatusNoContent, s.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			outcome := New(Config{}).Attempt(context.Background(), fetch.Attempt{URL: srv.URL, Timeout: time.Second})
			tt.check(t, outcome)
		})
	}
}

func TestAttemptTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	outcome := New(Config{}).Attempt(context.Background(), fetch.Attempt{URL: srv.URL, Timeout: 50 * time.Millisecond})

	rf, ok := outcome.(fetch.RetryableFailure)
	require.True(t, ok, "expected RetryableFailure, got %#v", outcome)
	require.Equal(t, fetch.ReasonTimeout, rf.Reason)
	require.Less(t, rf.Elapsed, time.Second)
}

func TestAttemptConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	outcome := New(Config{}).Attempt(context.Background(), fetch.Attempt{URL: addr, Timeout: time.Second})

	rf, ok := outcome.(fetch.RetryableFailure)
	require.True(t, ok, "expected RetryableFailure, got %#v", outcome)
	require.NotEqual(t, fetch.ReasonTimeout, rf.Reason)
	require.NotEmpty(t, rf.Reason)
	require.Zero(t, rf.StatusCode)
}

func TestAttemptRoutesThroughProxy(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		proxied []string
	)
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		proxied = append(proxied, r.URL.String())
		mu.Unlock()
		_, _ = w.Write([]byte("via proxy"))
	}))
	defer proxySrv.Close()

	proxyURL, err := url.Parse(proxySrv.URL)
	require.NoError(t, err)

	outcome := New(Config{}).Attempt(context.Background(), fetch.Attempt{
		URL:     "http://target.invalid/page",
		Proxy:   &fetch.ProxyEndpoint{URL: proxyURL},
		Timeout: time.Second,
	})

	success, ok := outcome.(fetch.Success)
	require.True(t, ok, "expected Success, got %#v", outcome)
	require.Equal(t, "via proxy", success.Body)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"http://target.invalid/page"}, proxied)
}

func TestAttemptTLSVerification(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer srv.Close()

	strict := New(Config{}).Attempt(context.Background(), fetch.Attempt{URL: srv.URL, Timeout: time.Second})
	rf, ok := strict.(fetch.RetryableFailure)
	require.True(t, ok, "expected certificate failure, got %#v", strict)
	require.NotEqual(t, fetch.ReasonTimeout, rf.Reason)

	insecure := New(Config{InsecureSkipVerify: true}).Attempt(context.Background(), fetch.Attempt{URL: srv.URL, Timeout: time.Second})
	success, ok := insecure.(fetch.Success)
	require.True(t, ok, "expected Success with verification disabled, got %#v", insecure)
	require.Equal(t, "secure", success.Body)
}

func TestClassifyWithoutResponse(t *testing.T) {
	t.Parallel()

	outcome := classify(nil, nil, time.Millisecond)
	rf, ok := outcome.(fetch.RetryableFailure)
	require.True(t, ok)
	require.Equal(t, "no response received", rf.Reason)
}

func TestClassifyDeadlineExceeded(t *testing.T) {
	t.Parallel()

	outcome := classify(nil, context.DeadlineExceeded, time.Millisecond)
	rf, ok := outcome.(fetch.RetryableFailure)
	require.True(t, ok)
	require.Equal(t, fetch.ReasonTimeout, rf.Reason)

	outcome = classify(nil, errors.New("boom"), time.Millisecond)
	rf, ok = outcome.(fetch.RetryableFailure)
	require.True(t, ok)
	require.Equal(t, "boom", rf.Reason)
}

func TestClassifyInformationalStatus(t *testing.T) {
	t.Parallel()

	outcome := classify(&colly.Response{StatusCode: http.StatusContinue}, nil, time.Millisecond)
	rf, ok := outcome.(fetch.RetryableFailure)
	require.True(t, ok)
	require.Equal(t, http.StatusContinue, rf.StatusCode)
}

func TestNewAppliesBodyLimitDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, defaultMaxBodyBytes, New(Config{}).cfg.MaxBodyBytes)
	require.Equal(t, 1024, New(Config{MaxBodyBytes: 1024}).cfg.MaxBodyBytes)
}

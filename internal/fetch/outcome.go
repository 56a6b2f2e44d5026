package fetch

import (
	"fmt"
	"time"
)

// Retry reasons attached to RetryableFailure.
const (
	ReasonTimeout     = "timeout"
	ReasonServerError = "server error"
	ReasonCanceled    = "canceled"
)

// Outcome is the classified result of a single attempt or of a whole
// sequence. The concrete type is one of Success, ClientError,
// RetryableFailure, or ExhaustedRetries.
type Outcome interface {
	isOutcome()
	elapsed() time.Duration
}

// Success is a 2xx/3xx response after redirects.
type Success struct {
	StatusCode int
	Body       string
	FinalURL   string
	Elapsed    time.Duration
}

// ClientError is a 4xx response. It is terminal.
type ClientError struct {
	StatusCode int
	Message    string
	Elapsed    time.Duration
}

// RetryableFailure covers timeouts, 5xx responses, and transport errors.
// StatusCode is zero when no response was received.
type RetryableFailure struct {
	Reason     string
	StatusCode int
	Elapsed    time.Duration
}

// ExhaustedRetries is produced once the attempt budget is spent.
type ExhaustedRetries struct {
	LastReason     string
	LastStatusCode int
	Attempts       int
	Elapsed        time.Duration
}

func (Success) isOutcome()          {}
func (ClientError) isOutcome()      {}
func (RetryableFailure) isOutcome() {}
func (ExhaustedRetries) isOutcome() {}

func (o Success) elapsed() time.Duration          { return o.Elapsed }
func (o ClientError) elapsed() time.Duration      { return o.Elapsed }
func (o RetryableFailure) elapsed() time.Duration { return o.Elapsed }
func (o ExhaustedRetries) elapsed() time.Duration { return o.Elapsed }

// Error renders the failure message reported on the Result.
func (o ExhaustedRetries) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %s", o.Attempts, o.LastReason)
}

// Label returns a short, low-cardinality name for metrics and logs.
func Label(o Outcome) string {
	switch o.(type) {
	case Success:
		return "success"
	case ClientError:
		return "client_error"
	case RetryableFailure:
		return "retryable"
	case ExhaustedRetries:
		return "exhausted"
	default:
		return "unknown"
	}
}

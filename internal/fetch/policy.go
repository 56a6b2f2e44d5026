package fetch

// State is a node of the per-URL retry state machine.
type State int

// Retry states. StateAttempting is the only non-terminal state.
const (
	StateAttempting State = iota
	StateSucceeded
	StateFailedTerminal
	StateFailedExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailedTerminal:
		return "failed_terminal"
	case StateFailedExhausted:
		return "failed_exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the sequence stops in this state.
func (s State) Terminal() bool {
	return s != StateAttempting
}

// Policy bounds the number of attempts for one URL.
type Policy struct {
	MaxAttempts int
}

// NewPolicy returns a Policy, falling back to DefaultMaxRetries for
// non-positive budgets.
func NewPolicy(maxAttempts int) Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxRetries
	}
	return Policy{MaxAttempts: maxAttempts}
}

// Transition returns the state that follows attempt number n ending in
// outcome. Client errors stop immediately regardless of remaining budget.
func (p Policy) Transition(n int, outcome Outcome) State {
	switch outcome.(type) {
	case Success:
		return StateSucceeded
	case ClientError:
		return StateFailedTerminal
	case RetryableFailure:
		if n < p.MaxAttempts {
			return StateAttempting
		}
		return StateFailedExhausted
	default:
		return StateFailedExhausted
	}
}

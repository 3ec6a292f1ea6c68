package kernschema

import "fmt"

// ErrorKind enumerates the error taxonomy of spec.md §7 — kinds, not
// Go type names.
type ErrorKind string

const (
	// ErrInput is a validation gate failure, surfaced by the owning
	// primitive, never retried internally.
	ErrInput ErrorKind = "input"
	// ErrTransient is a tool/vault/embed timeout or 5xx, retried per
	// policy with exponential backoff + jitter.
	ErrTransient ErrorKind = "transient"
	// ErrPermanent is a 4xx response other than rate limit, final;
	// reflection decides replan-or-fail.
	ErrPermanent ErrorKind = "permanent"
	// ErrPolicy is a plan rejected by guardrails or what-if; replan is
	// requested with the rejection rationale as context.
	ErrPolicy ErrorKind = "policy"
	// ErrResource is budget exhaustion or unrelievable memory pressure,
	// raised to T5 which transitions state.
	ErrResource ErrorKind = "resource"
	// ErrFatal is an invariant violation (cyclic DAG, working-memory cap
	// exceeded, WorldState race), escalated to T5 terminate.
	ErrFatal ErrorKind = "fatal"
)

// ErrorEnvelope is the structured error every primitive and assembled
// node returns instead of raising (spec.md §4.4.2, §7: "Primitives and
// assembled nodes never raise; they return structured error envelopes").
type ErrorEnvelope struct {
	Kind      ErrorKind
	Message   string
	NodeID    string
	Retryable bool
	RetryAfter int64 // milliseconds, meaningful only when Retryable
	Cause     error  `json:"-"`
}

func (e *ErrorEnvelope) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/As reach the underlying cause.
func (e *ErrorEnvelope) Unwrap() error {
	return e.Cause
}

// NewErrorEnvelope constructs an envelope of the given kind.
func NewErrorEnvelope(kind ErrorKind, nodeID, message string, cause error) *ErrorEnvelope {
	return &ErrorEnvelope{Kind: kind, NodeID: nodeID, Message: message, Cause: cause}
}

// Retry marks the envelope retryable with the given backoff hint.
func (e *ErrorEnvelope) Retry(afterMs int64) *ErrorEnvelope {
	e.Retryable = true
	e.RetryAfter = afterMs
	return e
}

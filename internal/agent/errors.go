package agent

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrorKind is the closed taxonomy of agent invocation failures. Every
// failure observed at the invocation boundary is classified exactly once;
// downstream code switches on Kind, never on message text.
type ErrorKind string

const (
	KindAgentUnavailable  ErrorKind = "AGENT_UNAVAILABLE"
	KindTimeout           ErrorKind = "TIMEOUT"
	KindMalformedResponse ErrorKind = "MALFORMED_RESPONSE"
	KindUnknown           ErrorKind = "UNKNOWN"
)

// ClassifiedError is an invocation failure normalized into the taxonomy,
// with the underlying cause preserved for diagnostics.
type ClassifiedError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// NewError creates a ClassifiedError of the given kind.
func NewError(kind ErrorKind, message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// User-facing messages per kind. The unavailable message carries the
// remediation hint because that failure is actionable by the operator.
const (
	msgUnavailable = "agent gateway is not running; start it with: " +
		"the agent CLI's `gateway start` command"
	msgTimeout   = "request to the agent timed out; try again or simplify the request"
	msgMalformed = "could not parse the agent response; please try again"
)

// Classify maps an arbitrary error onto the closed taxonomy. It is pure and
// total: every input yields exactly one ClassifiedError, an already
// classified error passes through untouched, and classifying twice is
// idempotent.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return NewError(KindUnknown, "agent error: <nil>", nil)
	}

	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		return cerr
	}

	// Typed sentinels first, substring heuristics second. The substring
	// rules match what the agent CLI actually prints on stderr.
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return NewError(KindAgentUnavailable, msgUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(KindTimeout, msgTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "gateway is not running"),
		strings.Contains(msg, "executable file not found"),
		strings.Contains(msg, "command not found"),
		strings.Contains(msg, "no such file"):
		return NewError(KindAgentUnavailable, msgUnavailable, err)
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline exceeded"):
		return NewError(KindTimeout, msgTimeout, err)
	case strings.Contains(msg, "json"),
		strings.Contains(msg, "parse"):
		return NewError(KindMalformedResponse, msgMalformed, err)
	}

	return NewError(KindUnknown, fmt.Sprintf("agent error: %s", err.Error()), err)
}

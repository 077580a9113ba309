package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTimeout           = errors.New("agent timed out")
	ErrAgentUnavailable  = errors.New("agent unavailable")
	ErrInvocationFailure = errors.New("invocation failure")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
)

// InvalidTransitionError carries both endpoints of a rejected state change.
type InvalidTransitionError struct {
	Current JobState
	Target  JobState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition from %q to %q is not allowed", e.Current, e.Target)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// AgentUnavailableError is returned when the agent CLI cannot be located.
type AgentUnavailableError struct {
	Hint string
}

func (e *AgentUnavailableError) Error() string {
	if e.Hint == "" {
		return "agent CLI not found"
	}
	return "agent CLI not found. " + e.Hint
}

func (e *AgentUnavailableError) Unwrap() error { return ErrAgentUnavailable }

// NotFoundf wraps ErrNotFound with a formatted detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

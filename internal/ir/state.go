package ir

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of an exchange record.
type State string

const (
	StateNew State = "new"

	// Outbound.
	StateOutputPending     State = "output_pending"
	StateOutputSent        State = "output_sent"
	StateOutputErrorOnSend State = "output_error_on_send"

	// Inbound.
	StateInputReceived       State = "input_received"
	StateInputProcessed      State = "input_processed"
	StateInputProcessedError State = "input_processed_error"
)

// AllStates lists every state in lifecycle order.
var AllStates = []State{
	StateNew,
	StateOutputPending,
	StateOutputSent,
	StateOutputErrorOnSend,
	StateInputReceived,
	StateInputProcessed,
	StateInputProcessedError,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// Allowed reports whether a record of direction d may hold state s.
// "new" is shared; output_* is outbound only, input_* inbound only.
func (s State) Allowed(d Direction) bool {
	if !s.Valid() {
		return false
	}
	switch {
	case s == StateNew:
		return true
	case strings.HasPrefix(string(s), "output_"):
		return d == DirectionOutbound
	case strings.HasPrefix(string(s), "input_"):
		return d == DirectionInbound
	}
	return false
}

// In reports whether s is one of states.
func (s State) In(states ...State) bool {
	for _, other := range states {
		if s == other {
			return true
		}
	}
	return false
}

// Sendable states: a send may run from these, otherwise it is skipped.
var SendableStates = []State{StateOutputPending, StateOutputErrorOnSend}

// ProcessableStates: a process may run from these, otherwise it is skipped.
var ProcessableStates = []State{StateInputReceived, StateInputProcessedError}

// ParseState converts a string into a known State.
func ParseState(s string) (State, error) {
	st := State(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown exchange state %q", s)
	}
	return st, nil
}

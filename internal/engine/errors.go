package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/edix/internal/ir"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeInvalidState indicates a lifecycle precondition was violated.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeStrategyFailed indicates a resolved strategy returned an error.
	ErrCodeStrategyFailed ErrorCode = "STRATEGY_FAILED"

	// ErrCodeUnknownType indicates the exchange type is not declared for the backend.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"
)

// ErrUnknownExchangeType is the sentinel wrapped by unknown-type errors.
var ErrUnknownExchangeType = errors.New("unknown exchange type")

// EngineError represents an error detected while driving a record.
//
// EngineError includes structured fields for diagnostics.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Backend identifies the backend the operation ran on.
	Backend string

	// Details contains additional context.
	Details map[string]string

	cause error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s: %s (backend=%s)", e.Code, e.Message, e.Backend)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.cause
}

// NewUnknownTypeError creates an EngineError for an undeclared exchange type.
func NewUnknownTypeError(backend, typeCode string) *EngineError {
	return &EngineError{
		Code:    ErrCodeUnknownType,
		Message: fmt.Sprintf("exchange type %q is not declared", typeCode),
		Backend: backend,
		Details: map[string]string{"type": typeCode},
		cause:   ErrUnknownExchangeType,
	}
}

// InvalidStateError is the user-facing error for a violated precondition.
// Always returned synchronously, never recorded on the record.
type InvalidStateError struct {
	RecordID  string
	Operation ir.Operation
	State     ir.State
	Direction ir.Direction
	Reason    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: cannot %s record %s (%s, state %s): %s",
		ErrCodeInvalidState, e.Operation, e.RecordID, e.Direction, e.State, e.Reason)
}

// StrategyExecutionError wraps the error returned by a resolved strategy.
// For send, receive and process it is recorded on the record and returned
// inside a Failed Outcome, never as the operation error.
type StrategyExecutionError struct {
	RecordID  string
	Operation ir.Operation
	Usage     string
	Cause     error
}

func (e *StrategyExecutionError) Error() string {
	return fmt.Sprintf("%s: %s strategy %q failed for record %s: %v",
		ErrCodeStrategyFailed, e.Operation, e.Usage, e.RecordID, e.Cause)
}

func (e *StrategyExecutionError) Unwrap() error {
	return e.Cause
}

// IsInvalidState returns true if the error is an InvalidStateError.
// Uses errors.As to handle wrapped errors.
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}

// IsStrategyFailure returns true if the error is a StrategyExecutionError.
// Uses errors.As to handle wrapped errors.
func IsStrategyFailure(err error) bool {
	var se *StrategyExecutionError
	return errors.As(err, &se)
}

// IsUnknownType returns true if the error reports an undeclared exchange type.
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownExchangeType)
}

// Code returns the ErrorCode carried by err, or "" when err is not an engine error.
func Code(err error) ErrorCode {
	var ee *EngineError
	switch {
	case err == nil:
		return ""
	case IsInvalidState(err):
		return ErrCodeInvalidState
	case IsStrategyFailure(err):
		return ErrCodeStrategyFailed
	case errors.As(err, &ee):
		return ee.Code
	}
	return ""
}

func invalidState(rec *ir.ExchangeRecord, op ir.Operation, reason string) *InvalidStateError {
	return &InvalidStateError{
		RecordID:  rec.ID,
		Operation: op,
		State:     rec.State,
		Direction: rec.Direction,
		Reason:    reason,
	}
}

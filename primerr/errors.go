// Package primerr defines the failure taxonomy for primcheck.
//
// Every error produced by the harness maps to exactly one FailureClass. The
// class decides the process exit code and tells a reader of the report whether
// a failed case is a disagreement between implementations, a problem with the
// harness's own resources, or an input neither implementation defines.
package primerr

import (
	"errors"
	"fmt"
)

// FailureClass is a stable failure category.
type FailureClass string

const (
	OracleDisagreement FailureClass = "ORACLE_DISAGREEMENT"
	ResourceError      FailureClass = "RESOURCE_ERROR"
	AmbiguousInput     FailureClass = "AMBIGUOUS_INPUT"
	CLIUsage           FailureClass = "CLI_USAGE"
	ConfigInvalid      FailureClass = "CONFIG_INVALID"
	IdempotenceDrift   FailureClass = "IDEMPOTENCE_DRIFT"
	InternalIO         FailureClass = "INTERNAL_IO"
	InternalError      FailureClass = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case OracleDisagreement, ResourceError, AmbiguousInput, IdempotenceDrift:
		return 1
	case InternalIO, InternalError:
		return 10
	default:
		return 2
	}
}

// Error is the structured error type for all primcheck failures.
type Error struct {
	Class   FailureClass
	Case    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("primerr: %s: %s", e.Class, e.Message)
	if e.Case != "" {
		msg = fmt.Sprintf("primerr: %s in %s: %s", e.Class, e.Case, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, caseLabel string, message string) *Error {
	return &Error{Class: class, Case: caseLabel, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, caseLabel string, message string, cause error) *Error {
	return &Error{Class: class, Case: caseLabel, Message: message, Cause: cause}
}

// ClassOf returns the class of the first *Error in err's chain, or
// InternalError when there is none.
func ClassOf(err error) FailureClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return InternalError
}

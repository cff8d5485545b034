// Package urdferr defines the error taxonomy shared by every component of the
// core: a handler never needs to know which package raised an error, only
// which kind it is, so it can pick the right HTTP status and event payload.
package urdferr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way §7 of the runtime contract does.
type Kind string

const (
	// KindConfig marks a missing or malformed startup file. Non-fatal for the
	// affected graph only.
	KindConfig Kind = "ConfigError"
	// KindSchema marks a JSON-LD value that violates the array-valued
	// predicate invariant.
	KindSchema Kind = "SchemaViolation"
	// KindNotFound marks a lookup by unknown id.
	KindNotFound Kind = "NotFound"
	// KindEvaluator marks a SPARQL or reasoner invocation failure.
	KindEvaluator Kind = "EvaluatorError"
	// KindContract marks a client-side contract violation (PREFIX/BASE in a
	// query, missing @id on loadFile, missing required rule fields).
	KindContract Kind = "ContractViolation"
	// KindConflict marks a mutation that collides with existing state (e.g.
	// creating a rule whose @id already exists).
	KindConflict Kind = "Conflict"
	// KindNotImplemented marks an evaluator "not implemented" response.
	KindNotImplemented Kind = "NotImplemented"
	// KindTransient marks an upstream host API that is unreachable but may
	// become reachable later.
	KindTransient Kind = "TransientUpstream"
)

// Error is a Kind-tagged error. It wraps an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, target) match when target is an *Error of the
// same Kind (e.g. urdferr.New(urdferr.KindNotFound, "")); callers should
// prefer KindOf below for clarity.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Kind == e.Kind
	}
	return false
}

// New builds a Kind-tagged error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a Kind-tagged error around an existing cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err, or "" if err is not (or does not wrap) an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps a Kind to the HTTP status the façade should answer with.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindSchema, KindContract:
		return 400
	case KindNotImplemented:
		return 501
	case KindEvaluator, KindConfig, KindTransient:
		return 500
	default:
		return 500
	}
}

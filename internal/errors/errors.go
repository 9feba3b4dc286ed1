// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. Kinds map directly onto how the execution router reacts:
// unsupported and transient failures trigger the local fallback, data errors surface
// the engine's message verbatim, fatal errors terminate the invocation.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Unsupported indicates privileged execution is unavailable for the target.
	// Expected on non-debuggable apps; triggers fallback, never logged as an error.
	Unsupported Kind = "unsupported"
	// Transient indicates a timeout or temporary transfer failure.
	Transient Kind = "transient"
	// Data indicates a SQL syntax or constraint error from the engine.
	// Surfaced verbatim; local execution would fail identically, so no fallback.
	Data Kind = "data"
	// Fatal indicates an unrecoverable condition: no device connected,
	// database not locatable, or no local fallback possible.
	Fatal Kind = "fatal"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of err, or the empty Kind for untyped errors.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

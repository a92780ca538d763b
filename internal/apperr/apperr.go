// Package apperr defines the error taxonomy shared by stores, services and
// the HTTP layer. Handlers map kinds to status codes; the wrapped cause is
// for logs only and is never serialized to clients.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindConfiguration
	KindUpstream
	KindInternal
)

// ItemError reports why one element of a batch failed validation.
type ItemError struct {
	Index  int      `json:"index"`
	Errors []string `json:"errors"`
}

type Error struct {
	Kind    Kind
	Message string
	Invalid []ItemError // populated for batch validation failures
	Err     error       // wrapped cause, logged server-side only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Batch builds a validation error carrying per-item reports.
func Batch(msg string, invalid []ItemError) *Error {
	return &Error{Kind: KindValidation, Message: msg, Invalid: invalid}
}

// KindOf extracts the kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

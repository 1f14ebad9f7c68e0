// Package apperr defines the single tagged error type shared by all
// service layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for handling at the API boundary.
type Kind string

const (
	// KindPermissionDenied marks an operation on a resource the caller
	// does not own, or a refused access grant.
	KindPermissionDenied Kind = "permission_denied"
	// KindStore marks any failure of a record-store round trip,
	// including lookups of identifiers that do not exist.
	KindStore Kind = "store_error"
	// KindAuth marks credential mismatches and duplicate registrations.
	KindAuth Kind = "auth_error"
)

// Error is the unified error shape. Every error crossing a package
// boundary in this service is one of these.
type Error struct {
	Kind    Kind
	Message string
	// NotFound distinguishes a missing identifier from a failed round
	// trip within KindStore.
	NotFound bool
	// Conflict marks a duplicate registration within KindAuth.
	Conflict bool
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// PermissionDenied returns a permission error.
func PermissionDenied(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

// Store wraps a store round-trip failure.
func Store(message string, err error) *Error {
	return &Error{Kind: KindStore, Message: message, Err: err}
}

// NotFound returns a store error for a missing identifier.
func NotFound(message string) *Error {
	return &Error{Kind: KindStore, Message: message, NotFound: true}
}

// Auth returns an authentication error.
func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// Duplicate returns an auth error for a conflicting registration.
func Duplicate(message string) *Error {
	return &Error{Kind: KindAuth, Message: message, Conflict: true}
}

// KindOf extracts the Kind of err, or KindStore when err is not an
// *Error (an unclassified failure is treated as a store failure).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// IsNotFound reports whether err is a missing-identifier store error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.NotFound
}

// IsConflict reports whether err is a duplicate-registration error.
func IsConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Conflict
}

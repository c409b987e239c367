package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// StoreError reports a failed call to the underlying store.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps a store failure. Returns nil if err is nil.
func NewStoreError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (err *StoreError) Error() string {
	return "store unavailable: " + err.Op + ": " + err.Err.Error()
}

// Unwrap keeps the driver error reachable by errors.Is / errors.As.
func (err *StoreError) Unwrap() error { return err.Err }

// IsStoreUnavailable reports whether the root cause of err is a StoreError.
func IsStoreUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*StoreError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

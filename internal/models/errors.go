package models

import (
	"errors"
	"fmt"
)

// Per-event errors are caller-scoped: they are sent back on the originating
// connection only, keyed by the client's correlation id where one was given.

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "unauthorized: " + e.Reason
}

type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "forbidden: " + e.Reason
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// StoreError wraps a durable-store failure. The detail is logged server-side;
// clients only see a generic failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorCode maps an error to the code carried on the wire.
func ErrorCode(err error) string {
	var (
		authErr       *AuthError
		forbiddenErr  *AuthorizationError
		notFoundErr   *NotFoundError
		validationErr *ValidationError
	)
	switch {
	case errors.As(err, &authErr):
		return "unauthorized"
	case errors.As(err, &forbiddenErr):
		return "forbidden"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.As(err, &validationErr):
		return "invalid"
	default:
		return "internal"
	}
}

// ClientMessage is the error text safe to surface to the caller. Store
// failures are replaced with a generic message.
func ClientMessage(err error) string {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return "internal error"
	}
	return err.Error()
}

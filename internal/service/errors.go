package service

import (
	"errors"
	"fmt"

	"github.com/suteetoe/society-service/pkg/database"
)

// Error kinds. Handlers map these to HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrInactive           = errors.New("account inactive")
	ErrNoContact          = errors.New("owner has no phone or email")
	ErrDispatch           = errors.New("reminder dispatch failed")
)

// Error is a client-facing failure: Message is safe to return as is.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return newError(ErrNotFound, "%s not found", what)
}

func invalid(format string, args ...interface{}) error {
	return newError(ErrInvalidInput, format, args...)
}

func conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

// lookupErr turns a gorm lookup failure into ErrNotFound when the row is missing.
func lookupErr(err error, what string) error {
	if database.IsNotFound(err) {
		return notFound(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// writeErr turns a unique index violation into ErrConflict.
func writeErr(err error, format string, args ...interface{}) error {
	if database.IsDuplicateKeyErr(err) {
		return conflict(format, args...)
	}
	return err
}

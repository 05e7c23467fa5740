// Package apperr holds the stable error kinds surfaced by the scheduling core.
// Callers branch on them with errors.Is; package specific errors wrap one of
// these kinds.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrSlotAlreadyBooked = errors.New("slot already booked")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrValidation        = errors.New("validation failed")
)

// New returns an error with the given message that matches kind.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

type ValidationError struct {
	Fields []string
}

func Validation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Kind returns the kind sentinel err matches, or nil.
func Kind(err error) error {
	for _, k := range []error{
		ErrValidation,
		ErrUnauthorized,
		ErrForbidden,
		ErrNotFound,
		ErrSlotUnavailable,
		ErrSlotAlreadyBooked,
		ErrInvalidTransition,
		ErrConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Wrapf annotates err with context while keeping its kind.
func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}

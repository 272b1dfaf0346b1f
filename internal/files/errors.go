package files

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound: no reservation, or no payload, for the id.
	ErrNotFound = errors.New("file not found")
	// ErrConflict: the reservation already holds a payload.
	ErrConflict = errors.New("file already submitted")
	// ErrExpired: the upload window elapsed.
	ErrExpired = errors.New("file descriptor expired")
	// ErrInvalidInput: the submission does not fit the reservation.
	ErrInvalidInput = errors.New("invalid input")
)

// InputError describes why a submission was rejected. It matches ErrInvalidInput.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// ValidationError aggregates per-field problems of a reservation request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

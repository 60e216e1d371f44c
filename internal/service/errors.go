package service

import (
	"errors"
	"fmt"

	"chunkrelay/internal/delivery"
)

var (
	// ErrUnsupportedFormat is returned when an upload has no known format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrConversion is returned when the conversion engine fails.
	ErrConversion = errors.New("conversion failed")
	// ErrTransfer is returned when the artifact cannot be delivered.
	ErrTransfer = delivery.ErrTransfer
	// ErrInternal is returned for any other failure, including recovered panics.
	ErrInternal = errors.New("internal error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
	Err     error // Optional sentinel for errors.Is matching
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// wrapKind tags err with sentinel unless it already carries it.
func wrapKind(sentinel, err error) error {
	if err == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

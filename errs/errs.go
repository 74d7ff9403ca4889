// Package errs defines the error taxonomy shared across the pipeline.
//
// Four sentinel kinds cover every failure mode: ErrConfig for bad setup
// detected at startup or index-build time, ErrInvalidInput for caller
// mistakes reported without entering the pipeline, ErrTransient for
// retryable downstream failures, and ErrFatal for downstream failures
// that must not be retried. Callers test kinds with errors.Is or the
// Is* helpers.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrConfig       = errors.New("invalid configuration")
	ErrInvalidInput = errors.New("invalid input")
	ErrTransient    = errors.New("transient failure")
	ErrFatal        = errors.New("fatal failure")
)

// Configf builds a configuration error. These fail fast: no retry, no
// fallback.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// InvalidInputf builds a caller-facing input error.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// AsTransient marks err as safe to retry with backoff.
func AsTransient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// AsFatal marks err as not retryable.
func AsFatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

func IsConfig(err error) bool       { return errors.Is(err, ErrConfig) }
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
func IsTransient(err error) bool    { return errors.Is(err, ErrTransient) }
func IsFatal(err error) bool        { return errors.Is(err, ErrFatal) }

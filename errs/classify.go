package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// StatusError carries an HTTP status returned by a downstream API that
// does not surface typed errors of its own (the Ollama endpoints).
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api returned status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("api returned status %d", e.Code)
}

// Classify sorts a downstream embedding or generation failure into the
// taxonomy. Rate limits, server errors and timeouts are transient; auth
// failures and malformed requests are fatal. Context cancellation is
// passed through untouched so callers can distinguish a client abort
// from a service failure. Unrecognized errors are treated as transient
// so a flaky network path gets its bounded retries before surfacing.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if IsTransient(err) || IsFatal(err) || IsConfig(err) || IsInvalidInput(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return AsTransient(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return byStatus(apiErr.HTTPStatusCode, err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return byStatus(statusErr.Code, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return AsTransient(err)
	}

	return AsTransient(err)
}

func byStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return AsTransient(err)
	case code >= 400:
		return AsFatal(err)
	default:
		return AsTransient(err)
	}
}

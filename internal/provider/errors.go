package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// ErrUnavailable marks failures that no retry can fix: the backend is
// unreachable, rejects our credentials, or does not know the model.
var ErrUnavailable = errors.New("generation backend unavailable")

// ErrTransient marks failures worth retrying after a short backoff.
var ErrTransient = errors.New("transient upstream failure")

// APIError is a non-2xx answer from an upstream backend.
type APIError struct {
	Provider string
	Status   int
	Type     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s error %d (%s): %s", e.Provider, e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.Status, e.Message)
}

// Unwrap exposes the failure class so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized,
		e.Status == http.StatusForbidden,
		e.Status == http.StatusNotFound:
		return ErrUnavailable
	case e.Status == http.StatusRequestTimeout,
		e.Status == http.StatusTooManyRequests,
		e.Status >= http.StatusInternalServerError:
		return ErrTransient
	default:
		return nil
	}
}

// TransportError wraps a failed round trip. Context cancellation and
// deadlines are returned as-is so callers can treat them as timeouts.
// A timeout of the HTTP client itself is transient: the backend was reached
// but was slow.
func TransportError(ctx context.Context, providerName string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s request: %w", providerName, ctxErr)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s request timed out: %w: %w", providerName, ErrTransient, err)
	}
	return fmt.Errorf("%s request failed: %w: %w", providerName, ErrUnavailable, err)
}

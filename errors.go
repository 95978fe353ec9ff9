package zipdemographics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
)

// ErrEmptyResponse indicates a request completed but the server returned no
// body. A response was received, so this is never retried.
var ErrEmptyResponse = errors.New("empty response body")

// ConfigError reports a malformed client configuration, most commonly a bad
// API key. It is raised synchronously at construction or update time, before
// any network capability is granted.
type ConfigError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// ValidationError reports one or more parameter-rule violations. It is
// raised before any network attempt and is never retried.
type ValidationError struct {
	// Violations holds every failed check, in rule-name order.
	Violations []string
}

// Error implements the error interface, joining the violations into a
// single human-readable message.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// TransportError reports that no response could be obtained after the
// configured retries were exhausted. It wraps the last underlying cause.
type TransportError struct {
	// Err is the last transport-level failure observed.
	Err error

	// Attempts is the total number of attempts made, including the first.
	Attempts int
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorClassifier determines whether a transport-level error should trigger
// a retry. Implement this interface to customize retry behavior.
type ErrorClassifier interface {
	// IsRetryable returns true if the error represents a transient failure
	// that should be retried.
	IsRetryable(err error) bool
}

// TransientClassifier is the default classifier. It treats failures to
// obtain a response at all (connection errors, timeouts, generic
// network-layer faults) as transient. A completed response, whatever its
// status code, never reaches the classifier.
type TransientClassifier struct{}

// IsRetryable implements ErrorClassifier.
func (TransientClassifier) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are NOT retryable - retrying with the same context
	// will fail immediately.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrEmptyResponse) {
		return false
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return true
	}
	if pkgerrors.IsTimeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Anything else at the transport layer is a generic network fault.
	return true
}

// DefaultErrorClassifier returns the classifier used when none is
// configured.
func DefaultErrorClassifier() ErrorClassifier {
	return TransientClassifier{}
}

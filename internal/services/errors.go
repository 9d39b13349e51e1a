package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured indicates required credentials or endpoints are absent.
	// Not retryable until an operator fixes configuration.
	ErrNotConfigured = errors.New("not configured")
	// ErrUnavailable indicates a transient network, auth, timeout, or
	// malformed-response failure talking to a remote service.
	ErrUnavailable = errors.New("service unavailable")
	// ErrSyncAlreadyRunning indicates the run-level sync guard rejected a trigger.
	ErrSyncAlreadyRunning = errors.New("sync already running")
	// ErrValidation indicates caller-supplied input was rejected.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransient is the default classification for unexpected failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsCatalogFailure reports whether an error should abort a sync run without
// mutating any request (configuration or availability problems).
func IsCatalogFailure(err error) bool {
	return errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrUnavailable)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

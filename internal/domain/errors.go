package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the sync server is unreachable
	ErrServerOffline = errors.New("sync server is unreachable")

	// ErrAuthFailed indicates the session cookie was rejected
	ErrAuthFailed = errors.New("session is invalid or expired")

	// ErrNoHistoryCursor indicates an incremental sync was requested before any full sync
	ErrNoHistoryCursor = errors.New("no history cursor: run a full sync first")

	// ErrClosed indicates the controller has been torn down
	ErrClosed = errors.New("sync controller is closed")
)

// APIError is returned for non-2xx responses that have no dedicated sentinel
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code: %d - %s", e.StatusCode, e.Body)
}

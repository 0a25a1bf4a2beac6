package tui

import (
	"errors"

	"github.com/mmcdole/collie/internal/domain"
)

// DescribeError turns refresh failures into a short user-facing line
func DescribeError(err error) string {
	var apiErr *domain.APIError
	switch {
	case errors.Is(err, domain.ErrAuthFailed):
		return "Session expired, sign in again and update server.session"
	case errors.Is(err, domain.ErrServerOffline):
		return "Server unreachable, retrying"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return err.Error()
	}
}

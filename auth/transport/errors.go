package transport

import (
	"errors"
	"fmt"
)

var (
	errRefreshFailed = errors.New("token refresh failed")
	// ErrNoRefresher is returned by New when no refresh endpoint was configured.
	ErrNoRefresher = errors.New("refresher not configured")
)

// RefreshError reports a non-2xx answer from the refresh endpoint.
type RefreshError struct {
	Status int
	Body   string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh rejected: status %d", e.Status)
}

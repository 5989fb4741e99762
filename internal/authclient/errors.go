package authclient

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRefreshFailed is surfaced when credentials expired and the refresh could not restore them.
	// The session has been terminated by the time a caller sees it.
	ErrAuthRefreshFailed = errors.New("authentication refresh failed")

	// ErrAuthExpired marks a 401 from the API. It is handled inside the pipeline and only
	// reaches callers as the cause of an AuthRefreshFailedError.
	ErrAuthExpired = errors.New("authentication expired")

	// errRefreshSuppressed is the cause used when the storm guard refuses a new refresh.
	errRefreshSuppressed = errors.New("refresh suppressed after recent failure")
)

// AuthRefreshFailedError carries the reason a refresh failed.
// errors.Is(err, ErrAuthRefreshFailed) is true for every instance.
type AuthRefreshFailedError struct {
	Cause error
}

func (e *AuthRefreshFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", ErrAuthRefreshFailed.Error(), e.Cause)
	}
	return ErrAuthRefreshFailed.Error()
}

// Unwrap exposes the cause for errors.Is/As.
func (e *AuthRefreshFailedError) Unwrap() error { return e.Cause }

// Is matches ErrAuthRefreshFailed.
func (e *AuthRefreshFailedError) Is(target error) bool { return target == ErrAuthRefreshFailed }

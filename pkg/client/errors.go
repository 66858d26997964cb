package client

import (
	"errors"
	"fmt"
)

// Display messages carried by failed outcomes.
const (
	MsgNetworkError   = "Network error"
	MsgSessionExpired = "Session expired"
	MsgNotFound       = "Not found"
	MsgConflict       = "Already Exists"
	MsgUnknown        = "Unknown error"
)

var (
	// ErrSessionExpired marks the terminal auth failure: the session could not
	// be refreshed, or a refreshed session was rejected. The store has been cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoSession is returned when an operation needs a stored session and none exists.
	ErrNoSession = errors.New("no session")
)

// HTTPError represents a failed outcome. StatusCode is 0 for transport failures.
type HTTPError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsNetworkError reports whether err came from a transport failure.
func IsNetworkError(err error) bool {
	return IsStatus(err, 0)
}

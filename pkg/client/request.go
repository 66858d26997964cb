package client

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// RequestSpec describes one logical API call.
type RequestSpec struct {
	// URL is either a path relative to the client's base URL or an absolute URL.
	URL string
	// Method defaults to GET.
	Method string
	// Header values set by the caller. Authorization is always owned by the client.
	Header map[string]string
	// Body is JSON-encoded when non-nil.
	Body any
	// Form is sent form-encoded instead of Body when non-nil.
	Form url.Values
	// NoRetry disables the refresh-and-retry step: a 401 ends the session at once.
	NoRetry bool
	// Anonymous sends no bearer token and skips the refresh protocol entirely.
	Anonymous bool
}

func (s RequestSpec) method() string {
	if s.Method == "" {
		return http.MethodGet
	}
	return s.Method
}

// Outcome is the normalised result of a request. Expected HTTP failures are
// reported here rather than as Go errors.
type Outcome struct {
	Success bool
	// Status is the final HTTP status, or 0 for a transport failure.
	Status int
	// Data holds the raw JSON body of a successful response.
	Data json.RawMessage
	// Message is a display string for failures.
	Message string
	// ErrorBody is the decoded error payload for validation failures.
	ErrorBody any
	// Cause is the underlying error for transport failures and session expiry.
	Cause error
}

// Decode unmarshals the success payload into v. On a failed outcome it returns Err().
func (o Outcome) Decode(v any) error {
	if !o.Success {
		return o.Err()
	}
	if len(o.Data) == 0 || v == nil {
		return nil
	}
	return json.Unmarshal(o.Data, v)
}

// Err converts a failed outcome into an *HTTPError. It returns nil on success.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}
	return &HTTPError{StatusCode: o.Status, Message: o.Message, Cause: o.Cause}
}

// SessionExpired reports whether the outcome ended the session.
func (o Outcome) SessionExpired() bool {
	return !o.Success && o.Status == http.StatusUnauthorized && o.Message == MsgSessionExpired
}

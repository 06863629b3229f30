package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTransportFailure is an exported constant or variable used by the session client.
	// It wraps errors where no HTTP response was obtained at all (DNS, refused
	// connection, canceled context).
	ErrTransportFailure = errors.New("transport failure")
)

// APIError defines a public type used by goSession APIs.
//
// APIError carries the HTTP status code and any server-supplied message body for
// a non-2xx response. Validation and business errors (4xx other than refreshable
// 401s, 5xx) propagate as *APIError unchanged; callers decide presentation.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

// Error describes the error operation and its observable behavior.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// APIMessage returns the server-supplied message. It satisfies the anonymous
// interface the auth state store uses to surface backend messages without
// importing this package.
func (e *APIError) APIMessage() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// IsStatus reports whether err is an [APIError] with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newAPIError(status int, body []byte) *APIError {
	msg := ""
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 {
		var eb errorBody
		if err := json.Unmarshal(trimmed, &eb); err == nil {
			switch {
			case eb.Message != "":
				msg = eb.Message
			case eb.Error != "":
				msg = eb.Error
			}
		}
		if msg == "" {
			msg = string(trimmed)
		}
	}

	return &APIError{Status: status, Message: msg, Body: body}
}

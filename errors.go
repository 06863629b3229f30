package goSession

import "errors"

var (
	// ErrClientNotReady is an exported constant or variable used by the session client.
	ErrClientNotReady = errors.New("session client not built")
	// ErrNotAuthenticated is an exported constant or variable used by the session client.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrClientClosed is an exported constant or variable used by the session client.
	ErrClientClosed = errors.New("session client closed")
)

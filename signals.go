package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// SignalType defines a public type used by goSession APIs.
//
// SignalType instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SignalType string

const (
	// SignalSessionExpired is an exported constant or variable used by the session client.
	// Broadcast when a refresh attempt fails: the session is gone and the
	// current user has been cleared.
	SignalSessionExpired SignalType = "session_expired"
	// SignalRefreshThrottled is an exported constant or variable used by the session client.
	SignalRefreshThrottled SignalType = "refresh_throttled"
	// SignalCSRFMissing is an exported constant or variable used by the session client.
	SignalCSRFMissing SignalType = "csrf_missing"
	// SignalRoleCheckFailed is an exported constant or variable used by the session client.
	SignalRoleCheckFailed SignalType = "role_check_failed"
	// SignalLoggedOut is an exported constant or variable used by the session client.
	SignalLoggedOut SignalType = "logged_out"
)

// SessionSignal is a fire-and-forget notification about session health.
type SessionSignal struct {
	Timestamp time.Time  `json:"timestamp"`
	Type      SignalType `json:"type"`
	Path      string     `json:"path,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// SignalSink receives session signals asynchronously.
type SignalSink interface {
	Emit(ctx context.Context, signal SessionSignal)
}

// NoOpSink defines a public type used by goSession APIs.
type NoOpSink struct{}

// Emit describes the emit operation and its observable behavior.
func (NoOpSink) Emit(context.Context, SessionSignal) {}

// ChannelSink defines a public type used by goSession APIs.
//
// ChannelSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChannelSink struct {
	signals chan SessionSignal
}

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		signals: make(chan SessionSignal, buffer),
	}
}

// Emit describes the emit operation and its observable behavior.
func (s *ChannelSink) Emit(ctx context.Context, signal SessionSignal) {
	select {
	case s.signals <- signal:
	case <-ctx.Done():
	}
}

// Signals describes the signals operation and its observable behavior.
func (s *ChannelSink) Signals() <-chan SessionSignal {
	return s.signals
}

// JSONWriterSink defines a public type used by goSession APIs.
//
// JSONWriterSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit describes the emit operation and its observable behavior.
func (s *JSONWriterSink) Emit(ctx context.Context, signal SessionSignal) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(signal)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

package refresh

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrThrottled is an exported constant or variable used by the session client.
	ErrThrottled = errors.New("refresh throttled")
)

// Func performs one refresh call against the backend. A nil return means the
// session was renewed and queued requests may be replayed.
type Func func(ctx context.Context) error

// Outcome is the tagged continuation released to every caller blocked behind a
// refresh attempt: replay the original request (Retry true) or propagate the
// refresh error (Retry false, Err set).
type Outcome struct {
	Retry bool
	Err   error
}

// Hooks defines a public type used by goSession APIs.
//
// Hooks instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hooks struct {
	Success   func()
	Failure   func(err error)
	Coalesced func()
}

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Throttle ThrottleConfig
	Hooks    Hooks
}

// Coordinator defines a public type used by goSession APIs.
//
// Coordinator instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Coordinator struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan Outcome

	throttle *throttle
	hooks    Hooks
}

// NewCoordinator describes the newcoordinator operation and its observable behavior.
//
// NewCoordinator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		throttle: newThrottle(cfg.Throttle),
		hooks:    cfg.Hooks,
	}
}

// Execute runs fn under single-flight coordination. The first caller while the
// coordinator is idle performs the refresh; concurrent callers queue and
// receive the in-flight attempt's outcome. Every caller is settled exactly
// once. A canceled context releases only the canceled waiter; the refresh it
// was queued behind still settles the rest.
func (c *Coordinator) Execute(ctx context.Context, fn Func) Outcome {
	if c == nil {
		return Outcome{Err: errors.New("nil refresh coordinator")}
	}

	c.mu.Lock()
	if c.refreshing {
		ch := make(chan Outcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		if c.hooks.Coalesced != nil {
			c.hooks.Coalesced()
		}

		select {
		case out := <-ch:
			return out
		case <-ctx.Done():
			return Outcome{Err: ctx.Err()}
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	var err error
	if !c.throttle.allow() {
		err = ErrThrottled
	} else {
		err = fn(ctx)
	}

	c.mu.Lock()
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	out := Outcome{Retry: err == nil, Err: err}
	for _, ch := range waiters {
		// Buffered channel: the send never blocks, and a waiter that already
		// abandoned its slot on context cancellation is still settled.
		ch <- out
	}

	if err == nil {
		if c.hooks.Success != nil {
			c.hooks.Success()
		}
	} else if c.hooks.Failure != nil {
		c.hooks.Failure(err)
	}

	return out
}

// Refreshing reports whether a refresh call is currently in flight.
func (c *Coordinator) Refreshing() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Pending reports the number of callers queued behind the in-flight refresh.
func (c *Coordinator) Pending() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

package guard

import (
	"context"
	"sync"

	"github.com/MrEthical07/goSession/internal/routepattern"
)

// Observer receives guard state transitions during a navigation, letting the
// host render "checking auth" / "checking permissions" placeholders.
type Observer func(location string, state State)

// Hooks defines a public type used by goSession APIs.
//
// Hooks instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hooks struct {
	Rendered   func(location string)
	Redirected func(location, target string)
	Denied     func(location string)
}

type entry struct {
	pattern string
	guard   *Guard
}

// Controller defines a public type used by goSession APIs.
//
// Controller is the route access controller: a table of route patterns to
// guards, evaluated per navigation. Routes without an entry render unguarded.
type Controller struct {
	mu       sync.RWMutex
	entries  []entry
	observer Observer
	hooks    Hooks
}

// NewController describes the newcontroller operation and its observable behavior.
//
// NewController does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewController(hooks Hooks) *Controller {
	return &Controller{hooks: hooks}
}

// Handle registers a guard for a route pattern. Patterns are matched in
// registration order; the first match wins.
func (c *Controller) Handle(pattern string, g *Guard) {
	if c == nil || pattern == "" {
		return
	}
	c.mu.Lock()
	c.entries = append(c.entries, entry{pattern: pattern, guard: g})
	c.mu.Unlock()
}

// SetObserver registers the state-transition observer for subsequent
// navigations.
func (c *Controller) SetObserver(observer Observer) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.observer = observer
	c.mu.Unlock()
}

// Routes reports the number of registered guarded routes.
func (c *Controller) Routes() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Navigate evaluates the guard for location and returns the access decision.
// The role check, when one runs, is a suspension point: Navigate blocks until
// it settles or ctx is done.
func (c *Controller) Navigate(ctx context.Context, location string) Decision {
	if c == nil {
		return Decision{Action: ActionRender, State: StateAuthorized}
	}

	c.mu.RLock()
	observer := c.observer
	var matched *Guard
	for _, e := range c.entries {
		if routepattern.Match(e.pattern, location) {
			matched = e.guard
			break
		}
	}
	c.mu.RUnlock()

	if matched == nil {
		return Decision{Action: ActionRender, State: StateAuthorized}
	}

	var observe func(State)
	if observer != nil {
		observe = func(state State) { observer(location, state) }
	}

	decision := matched.evaluate(ctx, location, observe)

	switch {
	case decision.Action == ActionRender:
		if c.hooks.Rendered != nil {
			c.hooks.Rendered(location)
		}
	case decision.State == StateDenied:
		if c.hooks.Denied != nil {
			c.hooks.Denied(location)
		}
	case decision.Action == ActionRedirect:
		if c.hooks.Redirected != nil {
			c.hooks.Redirected(location, decision.Target)
		}
	}

	return decision
}

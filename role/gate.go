package role

import (
	"context"
	"log/slog"
)

// Validator performs the backend role check. It is implemented by the session
// client on top of its JSON transport.
type Validator interface {
	ValidateRoles(ctx context.Context, required []string) (bool, error)
}

// Hooks defines a public type used by goSession APIs.
//
// Hooks instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hooks struct {
	Allowed func()
	Denied  func()
	Error   func(err error)
}

// Gate defines a public type used by goSession APIs.
//
// Gate instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Gate struct {
	validator     Validator
	authenticated func() bool
	hooks         Hooks
}

// NewGate describes the newgate operation and its observable behavior.
//
// NewGate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewGate(validator Validator, authenticated func() bool, hooks Hooks) *Gate {
	return &Gate{
		validator:     validator,
		authenticated: authenticated,
		hooks:         hooks,
	}
}

// HasAnyRole reports whether the current user satisfies at least one of the
// required role names (OR semantics). An empty required list means "no
// restriction". Without a current user the answer is false with no network
// call. Any validation error fails closed.
func (g *Gate) HasAnyRole(ctx context.Context, required []string) bool {
	if g == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	if g.authenticated != nil && !g.authenticated() {
		if g.hooks.Denied != nil {
			g.hooks.Denied()
		}
		return false
	}

	ok, err := g.validator.ValidateRoles(ctx, required)
	if err != nil {
		slog.Warn("role validation failed, denying access",
			slog.Any("required_roles", required),
			slog.String("error", err.Error()),
		)
		if g.hooks.Error != nil {
			g.hooks.Error(err)
		}
		return false
	}

	if ok {
		if g.hooks.Allowed != nil {
			g.hooks.Allowed()
		}
	} else if g.hooks.Denied != nil {
		g.hooks.Denied()
	}
	return ok
}

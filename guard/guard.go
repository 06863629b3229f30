package guard

import "context"

// State defines a public type used by goSession APIs.
//
// State instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type State uint8

const (
	// StateCheckingAuth is an exported constant or variable used by the session client.
	StateCheckingAuth State = iota
	// StateCheckingRole is an exported constant or variable used by the session client.
	StateCheckingRole
	// StateAuthorized is an exported constant or variable used by the session client.
	StateAuthorized
	// StateDenied is an exported constant or variable used by the session client.
	StateDenied
	// StateRedirecting is an exported constant or variable used by the session client.
	StateRedirecting
)

// String describes the string operation and its observable behavior.
func (s State) String() string {
	switch s {
	case StateCheckingAuth:
		return "checking_auth"
	case StateCheckingRole:
		return "checking_role"
	case StateAuthorized:
		return "authorized"
	case StateDenied:
		return "denied"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Action defines a public type used by goSession APIs.
//
// Action instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Action uint8

const (
	// ActionWait is an exported constant or variable used by the session client.
	// The host renders a loading placeholder and re-evaluates after the auth
	// store publishes its next update.
	ActionWait Action = iota
	// ActionRender is an exported constant or variable used by the session client.
	ActionRender
	// ActionRedirect is an exported constant or variable used by the session client.
	ActionRedirect
)

// Decision is the outcome of one guard evaluation.
type Decision struct {
	Action Action
	State  State

	// Target is the redirect destination when Action is ActionRedirect.
	Target string
	// ReturnTo carries the originally requested location for post-login
	// return. Set only on login redirects; public-only redirects go home
	// unconditionally.
	ReturnTo string
}

// AuthView is the read-only slice of auth state guards need.
type AuthView interface {
	Initialized() bool
	Authenticated() bool
}

// RoleChecker is the role gate capability, injected explicitly.
type RoleChecker interface {
	HasAnyRole(ctx context.Context, required []string) bool
}

type kind uint8

const (
	kindRequireAuth kind = iota
	kindPublicOnly
	kindRequireRoles
)

// Guard defines a public type used by goSession APIs.
//
// Guard instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Guard struct {
	kind     kind
	auth     AuthView
	roles    RoleChecker
	required []string

	loginRoute  string
	homeRoute   string
	deniedRoute string
}

// RequireAuth returns the authentication-required guard.
func RequireAuth(auth AuthView, loginRoute string) *Guard {
	return &Guard{kind: kindRequireAuth, auth: auth, loginRoute: loginRoute}
}

// PublicOnly returns the inverse guard for login/signup style pages.
func PublicOnly(auth AuthView, homeRoute string) *Guard {
	return &Guard{kind: kindPublicOnly, auth: auth, homeRoute: homeRoute}
}

// RequireRoles returns the role-required guard: RequireAuth composed with a
// role check against the required role names (OR semantics).
func RequireRoles(auth AuthView, roles RoleChecker, required []string, loginRoute, deniedRoute string) *Guard {
	return &Guard{
		kind:        kindRequireRoles,
		auth:        auth,
		roles:       roles,
		required:    append([]string(nil), required...),
		loginRoute:  loginRoute,
		deniedRoute: deniedRoute,
	}
}

// Evaluate runs the guard's state machine for a navigation to location.
func (g *Guard) Evaluate(ctx context.Context, location string) Decision {
	return g.evaluate(ctx, location, nil)
}

func (g *Guard) evaluate(ctx context.Context, location string, observe func(State)) Decision {
	if g == nil || g.auth == nil {
		return Decision{Action: ActionRender, State: StateAuthorized}
	}

	if !g.auth.Initialized() {
		transition(observe, StateCheckingAuth)
		return Decision{Action: ActionWait, State: StateCheckingAuth}
	}

	switch g.kind {
	case kindPublicOnly:
		if g.auth.Authenticated() {
			transition(observe, StateRedirecting)
			return Decision{Action: ActionRedirect, State: StateRedirecting, Target: g.homeRoute}
		}
		transition(observe, StateAuthorized)
		return Decision{Action: ActionRender, State: StateAuthorized}

	case kindRequireRoles:
		if !g.auth.Authenticated() {
			// Role checking never runs for an anonymous visitor.
			transition(observe, StateRedirecting)
			return Decision{Action: ActionRedirect, State: StateRedirecting, Target: g.loginRoute, ReturnTo: location}
		}

		transition(observe, StateCheckingRole)
		if g.roles != nil && g.roles.HasAnyRole(ctx, g.required) {
			transition(observe, StateAuthorized)
			return Decision{Action: ActionRender, State: StateAuthorized}
		}
		transition(observe, StateDenied)
		return Decision{Action: ActionRedirect, State: StateDenied, Target: g.deniedRoute}

	default: // kindRequireAuth
		if !g.auth.Authenticated() {
			transition(observe, StateRedirecting)
			return Decision{Action: ActionRedirect, State: StateRedirecting, Target: g.loginRoute, ReturnTo: location}
		}
		transition(observe, StateAuthorized)
		return Decision{Action: ActionRender, State: StateAuthorized}
	}
}

func transition(observe func(State), state State) {
	if observe != nil {
		observe(state)
	}
}

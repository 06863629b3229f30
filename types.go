package goSession

import (
	"github.com/MrEthical07/goSession/authstate"
)

// CurrentUser is the in-memory representation of the authenticated principal.
// It is owned exclusively by the auth state store; consumers read it through
// [Client.CurrentUser] or a subscription and never mutate it.
type CurrentUser = authstate.User

// AuthResult is the never-throws outcome of [Client.Login] and
// [Client.Register].
type AuthResult = authstate.Result

// AuthSnapshot is the state delivered to [Client.Subscribe] callbacks.
type AuthSnapshot = authstate.Snapshot

// Credentials is the login request payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput is the registration request payload.
type RegisterInput struct {
	PreferredName string `json:"preferred_name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
}

// RouteAccess defines a public type used by goSession APIs.
//
// RouteAccess instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RouteAccess uint8

const (
	// AccessRequireAuth is an exported constant or variable used by the session client.
	AccessRequireAuth RouteAccess = iota
	// AccessPublicOnly is an exported constant or variable used by the session client.
	AccessPublicOnly
	// AccessRequireRoles is an exported constant or variable used by the session client.
	AccessRequireRoles
)

// RouteSpec declares how a route pattern is guarded. Roles is consulted only
// when Access is [AccessRequireRoles]; OR semantics apply.
type RouteSpec struct {
	Access RouteAccess
	Roles  []string
}

// SessionReport is a read-only snapshot of the client's active posture,
// returned by [Client.SessionReport].
type SessionReport struct {
	BaseURL                string
	SharedRefreshState     bool
	RefreshThrottleEnabled bool
	MetricsEnabled         bool
	SignalsEnabled         bool
	GuardedRoutes          int
}

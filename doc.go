// Package goSession provides an authenticated API session client for cookie-based
// backends: silent access refresh with single-flight coordination, a current-user
// state store with subscriptions, remote role validation, and route access guards.
//
// The package is designed for concurrent host applications: Client methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config], and value
// types (CurrentUser, SessionSignal, MetricsSnapshot, etc.). The moving parts — REST
// transports, refresh coordination, auth state, role gating, route guards — live in
// sub-packages and are composed here.
//
// # What this package must NOT do
//
//   - Hold credentials: the session proof is an httpOnly cookie owned by the
//     cookie jar, opaque to this package.
//   - Interpret business errors: 4xx/5xx responses other than refreshable 401s
//     pass through to the caller unchanged.
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Refresh contract
//
// A 401 on a non-authentication endpoint triggers at most one concurrent refresh
// call per coordinator; every other 401-blocked request queues behind it and is
// replayed or failed with the refresh outcome. A failed refresh broadcasts
// [SignalSessionExpired] and clears the current user.
package goSession

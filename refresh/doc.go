// Package refresh implements single-flight coordination for session refresh
// calls.
//
// # State machine
//
// A [Coordinator] is either idle or refreshing. The first caller that hits a
// refreshable 401 wins the transition to refreshing and issues exactly one
// refresh call; every concurrent caller queues as a pending waiter. When the
// refresh settles, all waiters receive the same tagged [Outcome] — retry the
// original request, or fail with the refresh error — each exactly once.
//
// # Architecture boundaries
//
// This package owns the refreshing flag, the pending-waiter queue, and the
// client-side refresh throttle. It does NOT issue HTTP requests (the refresh
// function is injected), decide which responses are refreshable, or touch auth
// state.
//
// # What this package must NOT do
//
//   - Import transport, authstate, or goSession (no upward imports).
//   - Release a waiter before the in-flight refresh settles.
//   - Retry a failed refresh on its own.
package refresh

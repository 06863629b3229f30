// Package guard implements the route access state machines that gate
// navigation by authentication and role.
//
// # Guards
//
// Three guard variants exist. RequireAuth renders for an authenticated user
// and redirects anonymous visitors to the login route, carrying the original
// location for post-login return. PublicOnly is the inverse: authenticated
// visitors always go home. RequireRoles composes RequireAuth with a role
// check — anonymous visitors redirect to login without the role check ever
// running; insufficient roles redirect to the access-denied route, which is
// deliberately distinct from both the login route (the visitor IS
// authenticated) and any not-found page.
//
// While auth state is uninitialized every guard reports [ActionWait]; the host
// renders its loading placeholder and re-navigates when the state store
// publishes an update.
//
// # What this package must NOT do
//
//   - Run a role check for an unauthenticated visitor.
//   - Crash a navigation on a failed role check (fail closed into a
//     redirect).
//   - Mutate auth state; guards only read it.
package guard

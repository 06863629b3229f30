// Package role answers "does the current user hold at least one of a set of
// required role names" by remote validation.
//
// Role membership can be revoked between navigations, so results are never
// cached: every guarded navigation re-issues the check. The gate fails closed —
// any validation error counts as "no".
//
// # What this package must NOT do
//
//   - Return true on error paths (authorization never fails open).
//   - Cache validation results across calls.
//   - Issue a network call for an anonymous user.
package role

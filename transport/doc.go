// Package transport implements the REST transports used by the session client: a
// JSON transport and a multipart transport for file-bearing requests, both with
// CSRF header attachment and refresh-on-401 replay.
//
// # Architecture boundaries
//
// This package owns request execution, CSRF token extraction, and the error
// taxonomy ([APIError] vs [ErrTransportFailure]). It delegates refresh
// coordination to a [refresh.Coordinator] supplied at construction and never
// decides refresh policy beyond the allow-list and one-shot-retry rules.
//
// # What this package must NOT do
//
//   - Mutate auth state: refresh failures are reported through hooks, never by
//     touching a user store.
//   - Retry a request more than once, or refresh for allow-listed
//     authentication endpoints (that is how refresh loops are prevented).
//   - Read or synthesize session cookies; the cookie jar owns them.
package transport

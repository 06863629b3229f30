// Package authstate holds the single source of truth for "who is logged in".
//
// # Lifecycle
//
// [Store.Initialize] runs the who-am-I fetch exactly once per store lifetime,
// even under concurrent invocation; any failure (including "not
// authenticated") completes initialization with an absent user. Login and
// registration never populate the user from their own responses — a success is
// always followed by a who-am-I re-fetch, so every consumer observes one
// consistent contract. Logout clears the in-memory user unconditionally, even
// when the backend call fails.
//
// # Architecture boundaries
//
// This package owns user state and subscriptions. Backend I/O is injected
// through the [Backend] interface; the store never constructs transports and
// never sees HTTP details beyond the error values it is handed.
//
// # What this package must NOT do
//
//   - Issue refresh calls or interpret 401s (the transport layer owns that).
//   - Let any other component mutate the stored user.
//   - Deliver stale snapshots: subscribers are notified with the updated
//     state before the mutating call returns.
package authstate

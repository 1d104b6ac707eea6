// Package session holds the client's authentication state: the bearer token,
// the claims decoded from it, and the role checks views are gated on.
//
// # Lifecycle
//
// A [Store] starts not ready. [Store.Restore] reads the persisted token once at
// startup and marks the store ready; until then route gates report Loading.
// Login replaces the session wholesale, Logout and SessionInvalidated clear it.
// Claims are always derived from the token and never stored on their own.
//
// # Architecture boundaries
//
// This package owns the [Store], the [Session] value and [Role] parsing. It does
// NOT talk to the backend; the API client reports 401/403 by calling
// [Store.SessionInvalidated].
//
// # What this package must NOT do
//
//   - Import hostelbites, api, or cart (no upward imports).
//   - Verify token signatures. The backend is the authority.
package session

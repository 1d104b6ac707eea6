// Package middleware holds the HTTP middleware of the development backend:
// bearer authentication, per-route role checks, correlation ids and request
// logging.
//
// # Guards
//
//   - [Authenticate] answers 401 for a missing or unverifiable bearer token.
//   - [RequireRole] answers 403 when the verified role is not allowed.
//
// # What this package must NOT do
//
//   - Issue tokens. Verification is delegated to a [Verifier].
//   - Touch marketplace data.
package middleware

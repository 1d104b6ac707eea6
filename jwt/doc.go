// Package jwt reads identity claims out of marketplace bearer tokens and, for the
// development backend and tests, issues and verifies them.
//
// # Decoding
//
// [Decode] never verifies a signature. The client is not the authority on
// tokens; it only needs the claims to drive role gating and to address
// per-user endpoints. The backend remains responsible for rejecting forged or
// expired tokens with 401/403.
//
// # What this package must NOT do
//
//   - Import hostelbites, session, or cart (no upward imports).
//   - Panic on malformed input: every failure is an error value.
package jwt

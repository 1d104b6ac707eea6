// Package rate throttles failed logins on the development backend using Redis
// fixed-window counters keyed by email and client address.
//
// # What this package must NOT do
//
//   - Decide whether credentials are valid.
//   - Keep counters in process memory.
package rate

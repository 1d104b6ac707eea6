// Package settings loads the terminal client's YAML configuration, applies
// HOSTELBITES_* environment overrides, and opens the configured storage
// backend and logger.
//
// # What this package must NOT do
//
//   - Talk to the marketplace backend.
//   - Hold session state. It only decides where state lives.
package settings

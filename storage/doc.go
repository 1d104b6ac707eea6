// Package storage provides the keyed blob store the client persists its token
// and cart into.
//
// # Backends
//
//   - [Memory]: process-local map, used by tests and ephemeral runs.
//   - [Redis]: one string key per blob under a namespace prefix.
//   - [SQLite]: a single kv table in a local database file (CLI default).
//
// Values are opaque bytes. Callers own the encoding (the cart stores JSON).
//
// # What this package must NOT do
//
//   - Interpret stored values.
//   - Import hostelbites, session, or cart (no upward imports).
package storage

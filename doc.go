// Package hostelbites is the client core of a hostel snack marketplace: a
// buyer-side cart bound to one seller, a role-carrying session restored from
// local storage, and a typed client for the marketplace REST backend.
//
// An [App] ties these together. Build it with [New], call [App.Start] to
// restore the persisted session and cart, and [App.Close] when done. App
// methods are safe to call from multiple goroutines; Checkout and SaveProfile
// turn away a second concurrent call with [ErrInFlight].
//
// # Architecture boundaries
//
// hostelbites is the public surface. It exposes [App], [Builder], [Config],
// [Event] sinks and [MetricsSnapshot]. State machines live in session and cart,
// the wire protocol in api, and view gating in routes.
//
// # What this package must NOT do
//
//   - Retry backend calls. Every failure surfaces once to the caller.
//   - Close storage it did not open.
//   - Verify token signatures. Claims are decoded for routing only.
package hostelbites

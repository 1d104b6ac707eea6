// Package api is the typed client for the marketplace REST backend.
//
// Every call funnels through one round trip that attaches the bearer token and
// an X-Correlation-Id, then classifies the outcome into an [*Error] of a
// [Kind]. A 401 or 403 also fires the registered [InvalidationListener]
// exactly once per response; the session store is the usual listener.
//
// Nothing is retried. Callers own cancellation through their context, bounded
// by the configured per-endpoint timeouts.
package api

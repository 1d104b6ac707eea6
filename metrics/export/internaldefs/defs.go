package internaldefs

import (
	"github.com/MrEthical07/hostelbites"
)

// CounterDef binds a client counter to its exported name.
type CounterDef struct {
	ID   hostelbites.MetricID
	Name string
	Help string
}

// HistogramDef binds a client histogram to its exported name.
type HistogramDef struct {
	ID   hostelbites.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: hostelbites.MetricSessionRestored, Name: "hostelbites_session_restored_total", Help: "Sessions restored from storage at startup."},
	{ID: hostelbites.MetricSessionExpired, Name: "hostelbites_session_expired_total", Help: "Sessions dropped because the token expired."},
	{ID: hostelbites.MetricSessionInvalidated, Name: "hostelbites_session_invalidated_total", Help: "Sessions cleared after the backend rejected the token."},
	{ID: hostelbites.MetricLoginSuccess, Name: "hostelbites_login_success_total", Help: "Successful logins."},
	{ID: hostelbites.MetricLoginFailure, Name: "hostelbites_login_failure_total", Help: "Failed logins."},
	{ID: hostelbites.MetricLogout, Name: "hostelbites_logout_total", Help: "Explicit logouts."},
	{ID: hostelbites.MetricRegisterSuccess, Name: "hostelbites_register_success_total", Help: "Successful registrations."},
	{ID: hostelbites.MetricRegisterFailure, Name: "hostelbites_register_failure_total", Help: "Failed registrations."},
	{ID: hostelbites.MetricCartSellerSwitch, Name: "hostelbites_cart_seller_switch_total", Help: "Cart resets caused by adding an item from another seller."},
	{ID: hostelbites.MetricOrderPlaced, Name: "hostelbites_order_placed_total", Help: "Orders accepted by the backend."},
	{ID: hostelbites.MetricOrderFailed, Name: "hostelbites_order_failed_total", Help: "Checkouts that failed."},
	{ID: hostelbites.MetricCheckoutInFlight, Name: "hostelbites_checkout_in_flight_total", Help: "Checkouts rejected because another was running."},
	{ID: hostelbites.MetricGateAllowed, Name: "hostelbites_gate_allowed_total", Help: "Route checks that rendered the page."},
	{ID: hostelbites.MetricGateLogin, Name: "hostelbites_gate_login_total", Help: "Route checks that sent the user to login."},
	{ID: hostelbites.MetricGateDenied, Name: "hostelbites_gate_denied_total", Help: "Route checks that denied access."},
	{ID: hostelbites.MetricAPIRequest, Name: "hostelbites_api_request_total", Help: "Backend requests issued."},
	{ID: hostelbites.MetricAPIFailure, Name: "hostelbites_api_failure_total", Help: "Backend requests that failed."},
	{ID: hostelbites.MetricAPIAuthFailure, Name: "hostelbites_api_auth_failure_total", Help: "Backend requests rejected with 401 or 403."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: hostelbites.MetricAPILatency, Name: "hostelbites_api_latency_seconds", Help: "Backend request latency."},
}

// DroppedEventsName is the counter fed by the event dispatcher drop count.
const DroppedEventsName = "hostelbites_events_dropped_total"

// HistogramBounds are the upper bounds, in seconds, of the client buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

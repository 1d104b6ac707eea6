// Package prometheus renders the client's counters and API latency histogram
// in Prometheus text exposition format.
//
// Counter names are prefixed hostelbites_ and end in _total. The histogram is
// hostelbites_api_latency_seconds and is omitted while latency recording is
// off.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount Handler
//     or print Render.
//   - Mutate client state.
package prometheus

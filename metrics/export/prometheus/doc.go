// Package prometheus renders goSession metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [goSession.Client] and exposes an [http.Handler]
// that renders all session-client counters and histograms. Counter names are
// prefixed gosession_*_total; the single histogram is
// gosession_identity_fetch_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate client state.
package prometheus

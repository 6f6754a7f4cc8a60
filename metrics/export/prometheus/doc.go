// Package prometheus renders coordinator metrics in Prometheus text
// exposition format.
//
// [NewExporter] reads an [apolloAuth.Coordinator] and exposes an
// [http.Handler]. Counters are named apollo_*_total; the single histogram is
// apollo_exchange_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate coordinator state.
package prometheus

// Package prometheus renders the authcore engine counters in Prometheus
// text exposition format, without depending on the Prometheus client
// library.
//
// # What this package must NOT do
//
//   - Mutate engine state.
//   - Cache snapshots between scrapes.
package prometheus

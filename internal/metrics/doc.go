// Package metrics exposes Prometheus metrics for ingestion and the API.
//
// Key metrics:
//   - per-source cycle outcomes, written quotes and skipped records
//   - cycle duration and latest-rates refresh failures
//   - API request counts and latencies per route
//   - response log writer queue and drop counts
package metrics

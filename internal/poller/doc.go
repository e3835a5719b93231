// Package poller triggers ingestion cycles on a fixed interval.
//
// The Poller:
//   - Runs one cycle immediately on start, then one per interval
//   - Never overlaps cycles; a slow cycle delays the next tick
//   - Keeps the most recent CycleReport for health reporting
package poller

// Package ingest runs ingestion cycles.
//
// A cycle fans out one task per source adapter. Each task fetches raw
// records, normalizes them, and persists every quote whose bid or ask differs
// from the last stored quote for its pair. Failures are isolated: a bad
// record skips only that record, and a bad source fails only that source.
// The cycle itself always completes and returns a CycleReport.
package ingest

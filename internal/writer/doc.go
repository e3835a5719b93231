// Package writer implements the batching response-log writer.
//
// HTTP middleware hands each served response to ResponseLogWriter.Record,
// which never blocks. Entries queue in memory and are flushed to the
// response_logs table in batches, on size or on a timer, and once more on
// Stop. The queue is bounded; entries arriving while it is full are dropped
// and counted.
package writer

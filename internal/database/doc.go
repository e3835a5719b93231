// Package database provides connection pool management and schema migrations
// for the PostgreSQL rate store.
//
// Tables (see migrations/):
//   - rates: append-only quote log, indexed by (source, currency, observed_at DESC)
//   - contact_messages: contact-form submissions
//   - response_logs: served HTTP responses
package database

// Package store persists normalized quotes and contact-form submissions.
//
// Two implementations are provided for each store: a PostgreSQL one built on
// pgxpool, and an in-memory one used by tests and offline runs. Both give
// read-your-writes: a committed Insert is visible to the next Latest.
package store

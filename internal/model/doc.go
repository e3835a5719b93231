// Package model defines shared data types used across the bank rate service.
//
// All types mirror the database schema in internal/database/migrations.
//
// Conventions:
//   - Prices: shopspring decimal, always two fractional digits once normalized
//   - Timestamps: time.Time in UTC
//   - IDs: uuid.UUID for stored records, closed string enums for sources and currencies
package model

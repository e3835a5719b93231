// Package dedup implements the change-detection gate in front of the rate store.
//
// The gate:
//   - Compares a normalized quote with the latest stored quote for the same
//     (source, currency) pair
//   - Passes the first observation of a pair
//   - Passes any change in bid or ask, compared exactly on two-digit decimals
//   - Blocks a quote whose bid and ask both equal the baseline
//
// The store therefore only grows when a rate actually moves, not once per cycle.
package dedup

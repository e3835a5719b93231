// Package cache provides a small byte-oriented key/value cache with TTLs.
//
// Redis is the production backend. Memory is an in-process stand-in for
// tests and for running without Redis.
package cache

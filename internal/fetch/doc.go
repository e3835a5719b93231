// Package fetch provides the HTTP client shared by all source adapters.
//
// The client:
//   - Applies a per-request timeout on top of the caller's context
//   - Sends a fixed User-Agent (some bank pages reject the Go default)
//   - Maps non-2xx responses to *StatusError
//   - Decodes JSON with UseNumber so rates keep their literal precision
//   - Parses HTML with golang.org/x/net/html
//
// Retries are off by default. A failed source is reported for the cycle and
// picked up again on the next scheduled cycle.
package fetch

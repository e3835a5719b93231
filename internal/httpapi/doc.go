// Package httpapi exposes stored rates, the latest-rates aggregate and the
// contact form over HTTP using gin.
//
// Routes:
//   - GET  /health
//   - GET  /api/v1/rates          bid__lt ... ask__exact, source, currency, limit, offset
//   - GET  /api/v1/rates/latest
//   - GET  /api/v1/choices
//   - GET  /api/v1/sources
//   - POST /api/v1/contact
//   - GET  /api/v1/contact        created__lt ... created__exact (RFC 3339)
package httpapi

// Package api hosts the HTTP server, middleware, and REST handlers.
// Routes:
//   - POST /scrape runs a fetch batch and returns its summary.
//   - GET /health reports the service name and version.
//   - GET /metrics for Prometheus scraping.
package api

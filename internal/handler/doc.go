// Package handler implements the HTTP status API served by `pai serve`.
//
// # Routes
//
//	GET  /healthz                          liveness
//	GET  /api/domains                      configured chain per domain
//	GET  /api/domains/{domain}/health      probe every candidate of a domain
//	GET  /api/domains/{domain}/adapters    discovered adapters and their roles
//	GET  /api/secrets?pattern=&limit=      secret keys (never values)
//	GET  /api/audit?domain=&failed=&limit= stored audit entries, newest first
//	POST /api/reload                       drop cached configuration
//	GET  /api/events                       Server-Sent Events stream
//	GET  /metrics                          Prometheus exposition
//
// # Response Format
//
// Success responses are JSON. Errors are JSON with {error, details}; the
// status code follows the error kind (404 not found, 429 rate limited,
// 502 upstream failures, 503 when no adapter is usable).
package handler

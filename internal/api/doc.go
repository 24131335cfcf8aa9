// Package api implements the SIGPesq HTTP REST API and WebSocket server.
//
// Resources live under /api/v1 and speak JSON with Portuguese field names
// (participantes, projetos, financiamentos, producoes, consultas, dashboard).
//
// # Security
//
// Every route except /health, /auth/login, /auth/register and the WebSocket
// upgrade requires a bearer token. The auth middleware resolves it to a
// principal; each mutation then asks the authorization predicate whether
// that principal may act on the specific record, so ownership rules (project
// coordinator, production author, self-update) are enforced per request.
// WebSocket connections authenticate with a single-use ticket so the token
// never appears in a URL.
//
// # Side effects of a mutation
//
// After a write commits, the handler queues an audit entry (drained by a
// single goroutine), broadcasts the change to WebSocket clients, and, when
// configured, publishes a domain event to MQTT and records telemetry in
// InfluxDB. None of these can fail the request.
//
// # Metrics
//
// Prometheus metrics are served unauthenticated at /metrics; a JSON runtime
// summary is available to signed-in users at /api/v1/metrics.
package api

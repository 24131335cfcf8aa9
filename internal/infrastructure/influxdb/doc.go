// Package influxdb records SIGPesq operational telemetry in InfluxDB v2.
//
// Three measurements are written:
//
//	auth_attempts   tags: kind (login|register|password), outcome; fields: count
//	http_requests   tags: method, route, status_class; fields: status, duration_ms
//	domain_events   tags: entity, action; fields: count
//
// Writes go through the client library's non-blocking batched write API, so
// recording a point never delays the request that produced it. Async write
// failures are reported through SetOnError.
//
// The integration is optional: with influxdb.enabled=false Connect returns
// ErrDisabled and callers simply run without telemetry. All write methods are
// no-ops on a nil or closed client.
package influxdb

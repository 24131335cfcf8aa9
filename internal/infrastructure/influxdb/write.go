package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementAuth     = "auth_attempts"
	MeasurementRequests = "http_requests"
	MeasurementEvents   = "domain_events"
)

// Auth attempt kinds and outcomes.
const (
	AuthLogin    = "login"
	AuthRegister = "register"
	AuthPassword = "password"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func authPoint(kind, outcome string, at time.Time) *write.Point {
	return write.NewPoint(MeasurementAuth,
		map[string]string{"kind": kind, "outcome": outcome},
		map[string]any{"count": 1},
		at,
	)
}

// requestPoint tags by route pattern (not raw path) to keep cardinality bounded.
func requestPoint(method, route string, status int, elapsed time.Duration, at time.Time) *write.Point {
	return write.NewPoint(MeasurementRequests,
		map[string]string{
			"method":       method,
			"route":        route,
			"status_class": strconv.Itoa(status/100) + "xx", //nolint:mnd // HTTP status class
		},
		map[string]any{
			"status":      status,
			"duration_ms": float64(elapsed.Microseconds()) / 1000, //nolint:mnd // µs to ms
		},
		at,
	)
}

func eventPoint(entity, action string, at time.Time) *write.Point {
	return write.NewPoint(MeasurementEvents,
		map[string]string{"entity": entity, "action": action},
		map[string]any{"count": 1},
		at,
	)
}

// WriteAuthAttempt records a login, registration or password change outcome.
func (c *Client) WriteAuthAttempt(kind, outcome string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(authPoint(kind, outcome, time.Now()))
}

// WriteRequest records one served HTTP request.
func (c *Client) WriteRequest(method, route string, status int, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(requestPoint(method, route, status, elapsed, time.Now()))
}

// WriteDomainEvent records a committed mutation.
func (c *Client) WriteDomainEvent(entity, action string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(eventPoint(entity, action, time.Now()))
}

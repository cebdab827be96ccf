// Package faults defines the error kinds shared across service boundaries.
// Layers wrap these with fmt.Errorf("...: %w", ...) and callers test with
// errors.Is; the API layer maps them to HTTP status codes.
package faults

import "errors"

var (
	// ErrNotFound marks lookups for sensors, orders, technicians, alerts
	// or clients that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks operations against an entity whose current
	// state forbids them (inactive sensor, order not assignable).
	ErrInvalidState = errors.New("invalid state")

	// ErrNoAvailableResource marks dispatch attempts with no matching
	// technician. The order involved stays PENDING.
	ErrNoAvailableResource = errors.New("no available resource")

	// ErrUpstreamUnavailable marks collaborator failures (client lookup,
	// notification delivery). Best-effort paths log and swallow it.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

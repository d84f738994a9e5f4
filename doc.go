// Package robstride drives Robstride actuator nodes on a CAN bus for the
// Blender add-on backend: node discovery, enable/disable, position setpoint
// streaming and encoder feedback readback.
//
// The Manager is the entry point. The caller configures it, calls Connect,
// and from then on posts position writes and read requests that a background
// worker drains against the selected backend, so the caller's per-tick update
// loop never blocks on bus I/O. A built-in simulation engine synthesizes
// feedback when no hardware is present.
package robstride

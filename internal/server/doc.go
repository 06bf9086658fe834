// Package server wires slotkeeper's HTTP surface.
//
// # Routes
//
//   - POST /webhook/voice: voice platform function calls (rate limited per IP)
//   - GET /oauth/google/start, /oauth/google/callback: connect a calendar account
//   - GET /appointments.ics: iCalendar feed of recorded bookings (admin token)
//   - /mcp: streamable HTTP MCP endpoint, when enabled (admin token)
//   - /healthz, /readyz, /healthz/detailed: probes
//
// Routes marked "admin token" are registered only when an admin token is
// configured and require "Authorization: Bearer <token>".
//
// Prometheus metrics are served by MetricsServer on a separate port.
//
// ServerContext carries the shared dependencies and the shutdown state the
// probes report.
package server

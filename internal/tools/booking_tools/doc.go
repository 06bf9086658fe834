// Package booking_tools exposes slot lookup and booking as MCP tools.
//
// The tools mirror the voice webhook functions so an MCP-capable assistant
// can schedule appointments with the same rules and outcomes.
package booking_tools

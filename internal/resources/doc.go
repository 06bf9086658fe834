// Package resources provides MCP resources describing the business a
// slotkeeper instance books for. Resources are read-only data sources that
// MCP clients can fetch: business hours, the connected calendar account and
// upcoming appointments.
package resources

// Package common provides shared helpers for MCP tool implementations:
// argument extraction that tolerates loosely typed clients, JSON results,
// and the instrumentation wrapper every tool is registered through.
package common

// Package cmd implements the command-line interface for slotkeeper.
//
// This package provides the following commands:
//   - serve: Start the voice webhook, OAuth connect flow and MCP server
//   - accounts: List, activate and disconnect calendar accounts
//   - slots: Print the slots a caller would be offered
//   - export: Write confirmed appointments as an iCalendar feed
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd

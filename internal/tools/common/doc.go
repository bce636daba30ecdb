// Package common provides shared utilities for the MCP tool packages:
// instrumented handler wrappers that record metrics, audit events and span
// context, and caller identity extraction for the OAuth-protected HTTP
// transport.
package common

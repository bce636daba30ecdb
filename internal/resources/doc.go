// Package resources provides MCP resources for exposing TickTick data.
// Resources are read-only data sources that MCP clients can fetch: the
// project list and per-project data, JSON-encoded.
package resources

// Package project_tools provides MCP tools for TickTick project
// management: listing, fetching, creating, and deleting projects, plus
// fetching a project together with its tasks.
package project_tools

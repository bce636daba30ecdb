// Package task_tools provides MCP tools for TickTick task management:
// fetching, creating, updating, completing, and deleting tasks.
// Argument validation (priority enums, ISO 8601 dates) happens before
// any remote call.
package task_tools

// Package cmd implements the command-line interface for ticktick-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide TickTick tools for AI assistants
//   - auth: Run the TickTick OAuth flow and store the resulting tokens
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd

// Package format renders TickTick projects and tasks as the human-readable
// text returned by the MCP tools. All functions are pure so the rendering
// can be tested without a client or a server.
//
// Output strings are load-bearing: MCP clients scrape lines such as
// "ID: <id>" out of the tool results, so the exact wording and line
// structure must stay stable.
package format

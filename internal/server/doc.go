// Package server provides the MCP server runtime: the shared server
// context, health checks, the Prometheus metrics server, and the
// OAuth-protected streamable HTTP transport.
//
// # Key Components
//
// ServerContext holds the TickTick API client, the read-only flag, and
// optional instrumentation (metrics recorder, audit logger). Construction
// probes the remote API so a misconfigured token fails fast instead of on
// the first tool call.
//
// MetricsServer serves Prometheus metrics on a dedicated port, isolated
// from MCP traffic. HealthChecker provides /healthz and /readyz handlers
// for Kubernetes probes; it can be mounted on either server.
//
// OAuthHTTPServer exposes the MCP server over streamable HTTP. With
// authentication enabled it acts as an OAuth 2.1 resource server:
// Protected Resource Metadata (RFC 9728) announces Google as the
// authorization server, bearer tokens are validated against Google's
// userinfo endpoint, and requests are rate limited per IP. HTTPS is
// required outside loopback.
package server

// Package oauth protects the streamable HTTP transport as an OAuth 2.1
// resource server.
//
// MCP clients authenticate with a Google OAuth access token. The middleware
// validates bearer tokens against Google's userinfo endpoint, caches the
// validation result with a TTL, and places the authenticated user in the
// request context. Protected resource metadata (RFC 9728) announces Google
// as the authorization server so clients can discover where to obtain
// tokens.
//
// The package deliberately implements only the resource-server half of
// OAuth: token issuance, client registration, and the authorization-code
// flow all stay with Google.
package oauth

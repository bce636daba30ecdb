package oauth

import (
	"net/http"
	"time"

	"github.com/teemow/ticktick-mcp/internal/logging"
)

// Defaults for the resource-server configuration.
const (
	// DefaultTokenCacheTTL is how long a validated token is trusted before
	// it must be re-validated against Google.
	DefaultTokenCacheTTL = 5 * time.Minute

	// DefaultCleanupInterval is how often expired cache entries are removed.
	DefaultCleanupInterval = 1 * time.Minute

	// DefaultRateLimitCleanupInterval is how often inactive per-IP limiters
	// are removed.
	DefaultRateLimitCleanupInterval = 5 * time.Minute

	// GoogleAuthorizationServer is the issuer announced in the protected
	// resource metadata.
	GoogleAuthorizationServer = "https://accounts.google.com"

	// GoogleUserInfoEndpoint is the endpoint used to validate access tokens.
	GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// DefaultScopes are the scopes announced when none are configured.
var DefaultScopes = []string{"openid", "email", "profile"}

// Config holds the OAuth resource-server configuration.
type Config struct {
	// Resource is the MCP server resource identifier (RFC 8707), normally
	// the base URL of the MCP server. Required.
	Resource string

	// SupportedScopes are the scopes announced in the metadata document.
	// Defaults to DefaultScopes.
	SupportedScopes []string

	// RateLimit configures per-IP rate limiting. A zero Rate disables it.
	RateLimit RateLimitConfig

	// TokenCacheTTL is how long validated tokens are cached.
	// Defaults to DefaultTokenCacheTTL.
	TokenCacheTTL time.Duration

	// CleanupInterval is how often the token cache is swept.
	// Defaults to DefaultCleanupInterval.
	CleanupInterval time.Duration

	// UserInfoEndpoint overrides the Google userinfo endpoint, for tests.
	UserInfoEndpoint string

	// Logger for structured logging. Defaults to logging.DefaultLogger().
	Logger logging.Logger

	// HTTPClient is the client used to reach Google. Defaults to a client
	// with a 30s timeout.
	HTTPClient *http.Client
}

// RateLimitConfig holds per-IP rate limiting configuration.
type RateLimitConfig struct {
	// Rate is the number of requests per second allowed per IP (0 = no limit)
	Rate int

	// Burst is the maximum burst size allowed per IP. Defaults to 2x Rate.
	Burst int

	// CleanupInterval is how often inactive limiters are removed.
	// Defaults to DefaultRateLimitCleanupInterval.
	CleanupInterval time.Duration

	// TrustProxy indicates whether to trust X-Forwarded-For and X-Real-IP
	// headers. Only set behind a trusted proxy.
	TrustProxy bool
}

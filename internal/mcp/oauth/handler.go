package oauth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/ticktick-mcp/internal/logging"
)

// Handler serves the protected resource metadata and validates bearer
// tokens on MCP requests.
type Handler struct {
	config      *Config
	logger      logging.Logger
	httpClient  *http.Client
	tokenCache  *TokenCache
	rateLimiter *RateLimiter
	userInfoURL string
}

// NewHandler creates a resource-server handler from the given config. The
// Resource URL must be a valid absolute URL and must use HTTPS unless it
// points at loopback.
func NewHandler(cfg *Config) (*Handler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("oauth config is required")
	}
	if cfg.Resource == "" {
		return nil, fmt.Errorf("resource URL is required")
	}
	u, err := url.Parse(cfg.Resource)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid resource URL: %s", cfg.Resource)
	}
	if u.Scheme != "https" && !isLoopbackHost(u.Hostname()) {
		return nil, fmt.Errorf("resource URL must use HTTPS: %s", cfg.Resource)
	}

	if len(cfg.SupportedScopes) == 0 {
		cfg.SupportedScopes = DefaultScopes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	userInfoURL := cfg.UserInfoEndpoint
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoEndpoint
	}

	h := &Handler{
		config:      cfg,
		logger:      logger,
		httpClient:  httpClient,
		tokenCache:  NewTokenCache(cfg.TokenCacheTTL, cfg.CleanupInterval),
		userInfoURL: userInfoURL,
	}
	if cfg.RateLimit.Rate > 0 {
		h.rateLimiter = NewRateLimiter(cfg.RateLimit)
	}
	return h, nil
}

// Close stops background goroutines owned by the handler.
func (h *Handler) Close() {
	h.tokenCache.Stop()
	if h.rateLimiter != nil {
		h.rateLimiter.Stop()
	}
}

// RateLimitMiddleware wraps next with per-IP rate limiting when it is
// configured, and returns next unchanged otherwise.
func (h *Handler) RateLimitMiddleware(next http.Handler) http.Handler {
	if h.rateLimiter == nil {
		return next
	}
	return h.rateLimiter.Middleware(next)
}

// ServeProtectedResourceMetadata serves the OAuth 2.0 Protected Resource
// Metadata document (RFC 9728) announcing Google as the authorization
// server.
func (h *Handler) ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w, r)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.writeError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
		return
	}

	metadata := ProtectedResourceMetadata{
		Resource:               h.config.Resource,
		AuthorizationServers:   []string{GoogleAuthorizationServer},
		ScopesSupported:        h.config.SupportedScopes,
		BearerMethodsSupported: []string{"header"},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		h.logger.Error("failed to encode protected resource metadata", "error", err)
	}
}

// metadataURL returns the URL of the protected resource metadata document
// for use in WWW-Authenticate challenges.
func (h *Handler) metadataURL() string {
	return strings.TrimSuffix(h.config.Resource, "/") + "/.well-known/oauth-protected-resource"
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

// writeUnauthorizedError sends a 401 with the WWW-Authenticate challenge
// pointing at the resource metadata, per RFC 9728 section 5.1.
func (h *Handler) writeUnauthorizedError(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer resource_metadata=%q`, h.metadataURL()))
	h.writeError(w, http.StatusUnauthorized, "invalid_token", description)
}

func setSecurityHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-XSS-Protection", "1; mode=block")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	if r.TLS != nil {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
}

func isLoopbackHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

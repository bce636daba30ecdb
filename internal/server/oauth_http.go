package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/mcp/oauth"
)

// OAuthHTTPServerConfig configures the OAuth-protected HTTP transport.
type OAuthHTTPServerConfig struct {
	// MCPServer is the MCP server to expose over streamable HTTP.
	MCPServer *mcpserver.MCPServer

	// BaseURL is the externally visible base URL of this server, used as
	// the OAuth resource identifier.
	BaseURL string

	// Authenticated enables the OAuth 2.1 resource-server middleware.
	// When false the transport runs without authentication.
	Authenticated bool

	// DisableStreaming turns off SSE streaming on the HTTP transport for
	// clients that only speak plain JSON responses.
	DisableStreaming bool

	// HealthChecker, when set, mounts /healthz and /readyz next to /mcp.
	HealthChecker *HealthChecker

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// OAuthHTTPServer exposes an MCP server over streamable HTTP, optionally
// protected as an OAuth 2.1 resource server. It implements RFC 9728
// Protected Resource Metadata so MCP clients can discover Google as the
// authorization server.
type OAuthHTTPServer struct {
	mcpServer        *mcpserver.MCPServer
	oauthHandler     *oauth.Handler
	healthChecker    *HealthChecker
	httpServer       *http.Server
	baseURL          string
	disableStreaming bool
	logger           *slog.Logger
	metrics          *instrumentation.Metrics
}

// SetMetrics attaches a metrics recorder; HTTP requests are then counted
// and timed per method/path/status.
func (s *OAuthHTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrumentationMiddleware records request count and duration metrics.
func (s *OAuthHTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

// NewOAuthHTTPServer creates an OAuth-enabled HTTP server for MCP.
func NewOAuthHTTPServer(config OAuthHTTPServerConfig) (*OAuthHTTPServer, error) {
	if config.MCPServer == nil {
		return nil, fmt.Errorf("mcp server is required")
	}
	if err := validateHTTPSRequirement(config.BaseURL); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &OAuthHTTPServer{
		mcpServer:        config.MCPServer,
		healthChecker:    config.HealthChecker,
		baseURL:          config.BaseURL,
		disableStreaming: config.DisableStreaming,
		logger:           logger,
	}

	if config.Authenticated {
		oauthHandler, err := oauth.NewHandler(&oauth.Config{
			Resource: config.BaseURL,
			RateLimit: oauth.RateLimitConfig{
				Rate:  10,
				Burst: 20,
			},
			Logger: logging.NewSlogAdapter(logger),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OAuth handler: %w", err)
		}
		s.oauthHandler = oauthHandler
	} else {
		logger.Warn("HTTP transport is running WITHOUT authentication; anyone who can reach it can use your TickTick account")
	}

	return s, nil
}

// Start starts the HTTP server and blocks until it exits.
func (s *OAuthHTTPServer) Start(addr string) error {
	mux := http.NewServeMux()

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath("/mcp"),
	}
	if s.disableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)
	mcpHandler := http.Handler(streamable)

	if s.oauthHandler != nil {
		// Protected Resource Metadata endpoint (RFC 9728). This tells MCP
		// clients where to find the authorization server (Google).
		metadataHandler := http.HandlerFunc(s.oauthHandler.ServeProtectedResourceMetadata)
		mux.Handle("/.well-known/oauth-protected-resource", s.oauthHandler.RateLimitMiddleware(metadataHandler))

		mcpHandler = s.oauthHandler.RateLimitMiddleware(
			s.oauthHandler.ValidateGoogleToken(mcpHandler))
	}
	mux.Handle("/mcp", s.instrumentationMiddleware(mcpHandler))

	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP transport",
		"addr", addr,
		"base_url", s.baseURL,
		"authenticated", s.oauthHandler != nil)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if s.oauthHandler != nil {
		s.oauthHandler.Close()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// OAuthHandler returns the OAuth handler, or nil when the transport runs
// unauthenticated.
func (s *OAuthHTTPServer) OAuthHandler() *oauth.Handler {
	return s.oauthHandler
}

// validateHTTPSRequirement ensures OAuth 2.1 HTTPS compliance.
// HTTP is allowed only for loopback addresses (localhost, 127.0.0.1, ::1).
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
		return nil
	default:
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}
}

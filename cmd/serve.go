package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/resources"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/project_tools"
	"github.com/teemow/ticktick-mcp/internal/tools/task_tools"
)

// DefaultEnvFile is the credentials file consulted when --env-file and
// TICKTICK_ENV_FILE are both unset.
const DefaultEnvFile = ".env"

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode          bool
		transport          string
		httpAddr           string
		readOnly           bool
		googleClientID     string
		disableStreaming   bool
		baseURL            string
		envFile            string
		// Metrics server configuration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide TickTick
project and task tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

TickTick Credentials:
  Read from the env file (default .env, override with --env-file or
  TICKTICK_ENV_FILE) and the process environment. TICKTICK_ACCESS_TOKEN
  is required; run 'ticktick-mcp auth' to obtain it. With
  TICKTICK_CLIENT_ID, TICKTICK_CLIENT_SECRET and TICKTICK_REFRESH_TOKEN
  set, expired access tokens are refreshed and persisted automatically.

Safety Mode:
  Use --read-only to register only the read tools. Write operations
  (create, update, complete, delete) are enabled by default.

OAuth Configuration (HTTP transport only):
  Base URL (required for deployed instances):
    --base-url https://your-domain.com OR MCP_BASE_URL env var
    Auto-detected for localhost (development only)

  Client Authentication:
    --google-client-id flag OR GOOGLE_CLIENT_ID env var
    MCP clients then authenticate with Google before reaching the server.
    Tokens are validated against Google's userinfo endpoint, so no client
    secret is needed. Without a client ID the HTTP transport runs WITHOUT
    authentication.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}

			return runServe(transport, debugMode, httpAddr, readOnly, googleClientID, disableStreaming, baseURL, envFile, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Register only read tools. Write operations (create, update, complete, delete) are disabled.")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to the TickTick credentials env file. Can also use TICKTICK_ENV_FILE env var. Default: .env")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth Client ID used to authenticate MCP clients (HTTP transport only). Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL for OAuth (HTTP transport only). Required for deployed instances. Can also use MCP_BASE_URL env var. Example: https://mcp.example.com")

	// Metrics server flags
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(transport string, debugMode bool, httpAddr string, readOnly bool, googleClientID string, disableStreaming bool, baseURL string, envFile string, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Stdio owns stdout for the MCP protocol, so all logging goes to stderr.
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Load metrics config from environment if not set via flags
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}
	if os.Getenv("METRICS_ENABLED") == "false" {
		metricsConfig.Enabled = false
	}

	// Resolve the credentials env file: flag, then env var, then default
	if envFile == "" {
		envFile = os.Getenv("TICKTICK_ENV_FILE")
	}
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", "error", err)
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if transport != "stdio" && metricsConfig.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		// Wait for metrics server to be ready or fail
		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}
	defer func() {
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}
	}()

	// Load TickTick credentials from the env file and environment
	creds, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load TickTick credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("invalid TickTick credentials (run 'ticktick-mcp auth' first): %w", err)
	}

	clientOpts := []ticktick.Option{
		ticktick.WithEnvFile(envFile),
		ticktick.WithLogger(logger),
	}
	if provider.Enabled() {
		metrics := provider.Metrics()
		clientOpts = append(clientOpts, ticktick.WithRefreshObserver(func(refreshErr error) {
			result := "success"
			if refreshErr != nil {
				result = "error"
			}
			metrics.RecordOAuthTokenRefresh(shutdownCtx, result)
		}))
	}

	client, err := ticktick.NewClient(creds, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create TickTick client: %w", err)
	}

	// Create server context; this probes the API once so a bad token fails
	// fast instead of on the first tool call
	serverContext, err := server.NewServerContext(shutdownCtx, client, readOnly)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", "error", err)
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("ticktick-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if readOnly {
		logger.Info("starting server in READ-ONLY mode (write tools disabled)")
	} else {
		logger.Info("starting server with write operations enabled (use --read-only to disable)")
	}

	// Register all tools and resources
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, httpAddr, googleClientID, disableStreaming, baseURL, metricsConfig, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	// Define all tool registrations
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Projects",
			register: func() error {
				return project_tools.RegisterProjectTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Tasks",
			register: func() error {
				return task_tools.RegisterTaskTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Project Resources",
			register: func() error {
				return resources.RegisterProjectResources(mcpSrv, ctx)
			},
		},
	}

	// Register all tools
	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

// resolveBaseURL determines the externally visible base URL: explicit flag,
// MCP_BASE_URL env var, or a localhost fallback derived from the listen addr.
func resolveBaseURL(baseURL, addr string) (url string, autoDetected bool) {
	if baseURL == "" {
		baseURL = os.Getenv("MCP_BASE_URL")
	}
	if baseURL != "" {
		return baseURL, false
	}

	// Fall back to auto-detection for local development
	if len(addr) > 0 && addr[0] == ':' {
		return fmt.Sprintf("http://localhost%s", addr), true
	}
	return fmt.Sprintf("http://%s", addr), true
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, addr string, googleClientID string, disableStreaming bool, baseURL string, metricsConfig MetricsConfig, instrProvider *instrumentation.Provider, logger *slog.Logger) error {
	// Get the Google OAuth client ID from the environment if not provided
	// via the flag. Token validation goes through Google's userinfo
	// endpoint, so no client secret is involved.
	if googleClientID == "" {
		googleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}

	resolvedURL, autoDetected := resolveBaseURL(baseURL, addr)
	if autoDetected {
		logger.Info("no base URL configured, using auto-detected", "base_url", resolvedURL)
		logger.Info("for deployed instances, set --base-url flag or MCP_BASE_URL env var")
	} else {
		logger.Info("using configured base URL", "base_url", resolvedURL)
	}

	authenticated := googleClientID != ""

	oauthServer, err := server.NewOAuthHTTPServer(server.OAuthHTTPServerConfig{
		MCPServer:        mcpSrv,
		BaseURL:          resolvedURL,
		Authenticated:    authenticated,
		DisableStreaming: disableStreaming,
		HealthChecker:    server.NewHealthChecker(serverContext),
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create OAuth HTTP server: %w", err)
	}

	// Set up HTTP instrumentation for metrics
	if instrProvider != nil && instrProvider.Enabled() {
		oauthServer.SetMetrics(instrProvider.Metrics())
	}

	fmt.Printf("Streamable HTTP server starting on %s\n", addr)
	fmt.Printf("  HTTP endpoint: /mcp\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz\n")
	if authenticated {
		fmt.Printf("  OAuth metadata: /.well-known/oauth-protected-resource\n")
	}
	if metricsConfig.Enabled {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", metricsConfig.Addr)
	}

	if authenticated {
		fmt.Println("\nClients must authenticate with Google OAuth to access this server.")
		fmt.Println("The MCP client (e.g., Cursor, Claude Desktop) will handle the OAuth flow automatically.")
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := oauthServer.Start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := oauthServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server stopped")
	return nil
}

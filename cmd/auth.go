package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gsoauth "github.com/giantswarm/mcp-oauth"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// DefaultAuthorizeURL is the TickTick OAuth authorization endpoint.
const DefaultAuthorizeURL = "https://ticktick.com/oauth/authorize"

// authTimeout bounds how long we wait for the browser callback.
const authTimeout = 5 * time.Minute

func newAuthCmd() *cobra.Command {
	var (
		clientID     string
		clientSecret string
		port         int
		envFile      string
		authorizeURL string
		tokenURL     string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with TickTick",
		Long: `Run the TickTick OAuth authorization flow and store the resulting
tokens in the credentials env file.

Requires a TickTick developer app (https://developer.ticktick.com) with
redirect URI http://localhost:<port>/callback. The client ID and secret
can be passed via flags or the TICKTICK_CLIENT_ID and
TICKTICK_CLIENT_SECRET environment variables.

The command opens a local callback server, prints the authorization URL
for you to open in a browser, exchanges the returned code for tokens,
writes them to the env file and verifies them with a test API call.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(clientID, clientSecret, port, envFile, authorizeURL, tokenURL)
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "TickTick OAuth client ID. Can also use TICKTICK_CLIENT_ID env var.")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "TickTick OAuth client secret. Can also use TICKTICK_CLIENT_SECRET env var.")
	cmd.Flags().IntVar(&port, "port", 8000, "Local port for the OAuth callback server")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to the credentials env file to write. Can also use TICKTICK_ENV_FILE env var. Default: .env")
	cmd.Flags().StringVar(&authorizeURL, "authorize-url", DefaultAuthorizeURL, "TickTick OAuth authorization endpoint")
	cmd.Flags().StringVar(&tokenURL, "token-url", ticktick.DefaultTokenURL, "TickTick OAuth token endpoint")

	return cmd
}

func runAuth(clientID, clientSecret string, port int, envFile, authorizeURL, tokenURL string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if envFile == "" {
		envFile = os.Getenv("TICKTICK_ENV_FILE")
	}
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	// Fall back to the env file and environment for the client pair, so a
	// re-auth after token revocation needs no flags at all.
	existing, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if clientID == "" {
		clientID = existing.ClientID
	}
	if clientSecret == "" {
		clientSecret = existing.ClientSecret
	}
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("client ID and secret are required: pass --client-id/--client-secret or set %s and %s", config.KeyClientID, config.KeyClientSecret)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authorizeURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		RedirectURL: fmt.Sprintf("http://localhost:%d/callback", port),
		Scopes:      []string{"tasks:write", "tasks:read"},
	}

	state, err := randomState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}

	callbackCh := make(chan *gsoauth.CallbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result := gsoauth.ParseCallbackQuery(
			q.Get("code"),
			q.Get("state"),
			q.Get("error"),
			q.Get("error_description"),
			q.Get("error_uri"),
		)

		if err := result.Err(); err != nil {
			http.Error(w, fmt.Sprintf("Authorization failed: %v", err), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><h2>Authorization complete</h2><p>You can close this window and return to the terminal.</p></body></html>")
		}

		select {
		case callbackCh <- result:
		default:
		}
	})

	callbackServer := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := callbackServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = callbackServer.Shutdown(shutdownCtx)
	}()

	authURL := oauthConfig.AuthCodeURL(state)
	fmt.Println("Open the following URL in your browser to authorize access:")
	fmt.Println()
	fmt.Printf("  %s\n", authURL)
	fmt.Println()
	fmt.Printf("Waiting for the callback on %s ...\n", oauthConfig.RedirectURL)

	var result *gsoauth.CallbackResult
	select {
	case result = <-callbackCh:
	case err := <-serverErr:
		return fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("authorization cancelled")
	case <-time.After(authTimeout):
		return fmt.Errorf("timed out waiting for authorization callback")
	}

	if err := result.Err(); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	if result.State != state {
		return fmt.Errorf("state mismatch in OAuth callback; possible CSRF, aborting")
	}

	exchangeCtx, exchangeCancel := context.WithTimeout(ctx, 30*time.Second)
	defer exchangeCancel()
	token, err := oauthConfig.Exchange(exchangeCtx, result.Code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	creds := &config.Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		BaseURL:      existing.BaseURL,
	}
	if err := config.Save(envFile, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	fmt.Printf("Tokens written to %s\n", envFile)

	// Verify the tokens actually work before declaring victory
	client, err := ticktick.NewClient(creds)
	if err != nil {
		return fmt.Errorf("failed to create TickTick client: %w", err)
	}
	probeCtx, probeCancel := context.WithTimeout(ctx, 30*time.Second)
	defer probeCancel()
	projects, err := client.GetProjects(probeCtx)
	if err != nil {
		return fmt.Errorf("tokens saved but the API probe failed: %w", err)
	}

	fmt.Printf("Authentication successful. %d projects visible.\n", len(projects))
	return nil
}

// randomState returns a hex-encoded 128-bit CSRF state value.
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

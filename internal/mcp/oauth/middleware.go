package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/teemow/ticktick-mcp/internal/logging"
)

type contextKey string

const (
	userContextKey  contextKey = "oauth_user"
	tokenContextKey contextKey = "oauth_token"
)

// ValidateGoogleToken returns a middleware that requires a valid Google
// access token in the Authorization header. Validated tokens are cached,
// so repeated requests with the same token do not hit the userinfo
// endpoint until the cache entry expires.
func (h *Handler) ValidateGoogleToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, r)

		token, ok := bearerToken(r)
		if !ok {
			h.writeUnauthorizedError(w, "missing or malformed Authorization header")
			return
		}

		user := h.tokenCache.Get(token)
		if user == nil {
			var err error
			user, err = h.validateToken(r.Context(), token)
			if err != nil {
				h.logger.Warn("token validation failed",
					"error", err,
					"token", logging.SanitizeToken(token))
				h.writeUnauthorizedError(w, actionableErrorMessage(err))
				return
			}
			h.tokenCache.Put(token, user)
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalGoogleToken validates a bearer token when one is present but
// lets unauthenticated requests through. Useful for endpoints that adapt
// output to the caller without requiring auth.
func (h *Handler) OptionalGoogleToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, r)

		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user := h.tokenCache.Get(token)
		if user == nil {
			var err error
			user, err = h.validateToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			h.tokenCache.Put(token, user)
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateToken checks an access token against the Google userinfo
// endpoint and returns the associated user.
func (h *Handler) validateToken(ctx context.Context, token string) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var user GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("userinfo response missing email")
	}
	return &user, nil
}

// GetUserFromContext returns the authenticated user, if any.
func GetUserFromContext(ctx context.Context) (*GoogleUserInfo, bool) {
	user, ok := ctx.Value(userContextKey).(*GoogleUserInfo)
	return user, ok
}

// GetGoogleTokenFromContext returns the validated bearer token, if any.
func GetGoogleTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// actionableErrorMessage maps a validation failure onto a message that
// tells the caller what to do next.
func actionableErrorMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "status 401"):
		return "access token expired or revoked, re-authenticate with Google"
	case strings.Contains(msg, "status 403"):
		return "access token lacks required scopes, re-authenticate requesting openid email profile"
	case strings.Contains(msg, "status 429"):
		return "Google rate limit reached, retry after a short delay"
	case strings.Contains(msg, "status 5"):
		return "Google userinfo endpoint unavailable, retry later"
	case strings.Contains(msg, "request failed"):
		return "could not reach Google to validate the token, check network connectivity"
	default:
		return "token validation failed"
	}
}

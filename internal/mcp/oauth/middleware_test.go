package oauth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestHandler(t *testing.T, userInfoURL string) *Handler {
	t.Helper()
	h, err := NewHandler(&Config{
		Resource:         "http://localhost:8080",
		UserInfoEndpoint: userInfoURL,
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestValidateGoogleToken_MissingHeader(t *testing.T) {
	h := newTestHandler(t, "http://unused.invalid")
	next, called := okHandler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	h.ValidateGoogleToken(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if *called {
		t.Error("next handler was called without a token")
	}
	wwwAuth := rec.Header().Get("WWW-Authenticate")
	if !strings.Contains(wwwAuth, "resource_metadata") {
		t.Errorf("WWW-Authenticate = %q, want resource_metadata challenge", wwwAuth)
	}
	if !strings.Contains(wwwAuth, "/.well-known/oauth-protected-resource") {
		t.Errorf("WWW-Authenticate = %q, want metadata URL", wwwAuth)
	}
}

func TestValidateGoogleToken_InvalidFormat(t *testing.T) {
	h := newTestHandler(t, "http://unused.invalid")
	next, called := okHandler()

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Bearer   "} {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ValidateGoogleToken(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
	}
	if *called {
		t.Error("next handler was called with a malformed header")
	}
}

func TestValidateGoogleToken_InvalidToken(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer userinfo.Close()

	h := newTestHandler(t, userinfo.URL)
	next, called := okHandler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	h.ValidateGoogleToken(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if *called {
		t.Error("next handler was called with an invalid token")
	}
	if !strings.Contains(rec.Body.String(), "re-authenticate") {
		t.Errorf("body = %q, want actionable message", rec.Body.String())
	}
}

func TestValidateGoogleToken_ValidTokenCached(t *testing.T) {
	validations := 0
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		validations++
		if got := r.Header.Get("Authorization"); got != "Bearer good-token" {
			t.Errorf("userinfo Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"123","email":"user@example.com","email_verified":true}`))
	}))
	defer userinfo.Close()

	h := newTestHandler(t, userinfo.URL)

	var gotUser *GoogleUserInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			t.Error("user missing from request context")
		}
		gotUser = user
		if token, ok := GetGoogleTokenFromContext(r.Context()); !ok || token != "good-token" {
			t.Errorf("token from context = %q, %v", token, ok)
		}
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		h.ValidateGoogleToken(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}

	if validations != 1 {
		t.Errorf("userinfo validations = %d, want 1 (cache should absorb repeats)", validations)
	}
	if gotUser == nil || gotUser.Email != "user@example.com" {
		t.Errorf("user = %+v, want email user@example.com", gotUser)
	}
}

func TestValidateGoogleToken_MissingEmail(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sub":"123"}`))
	}))
	defer userinfo.Close()

	h := newTestHandler(t, userinfo.URL)
	next, called := okHandler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer no-email-token")
	rec := httptest.NewRecorder()
	h.ValidateGoogleToken(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if *called {
		t.Error("next handler was called for a token with no email")
	}
}

func TestOptionalGoogleToken_NoHeader(t *testing.T) {
	h := newTestHandler(t, "http://unused.invalid")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserFromContext(r.Context()); ok {
			t.Error("unexpected user in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	h.OptionalGoogleToken(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestOptionalGoogleToken_InvalidTokenPassesThrough(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer userinfo.Close()

	h := newTestHandler(t, userinfo.URL)
	next, called := okHandler()

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	h.OptionalGoogleToken(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !*called {
		t.Error("next handler was not called")
	}
}

func TestActionableErrorMessage(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"userinfo returned status 401", "expired or revoked"},
		{"userinfo returned status 403", "lacks required scopes"},
		{"userinfo returned status 429", "rate limit"},
		{"userinfo returned status 503", "unavailable"},
		{"userinfo request failed: dial tcp: timeout", "network connectivity"},
		{"something else", "token validation failed"},
	}
	for _, tt := range tests {
		got := actionableErrorMessage(errString(tt.err))
		if !strings.Contains(got, tt.want) {
			t.Errorf("actionableErrorMessage(%q) = %q, want substring %q", tt.err, got, tt.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	warns []string
}

func (l *recordingLogger) Debug(msg string, args ...interface{}) {}
func (l *recordingLogger) Info(msg string, args ...interface{})  {}
func (l *recordingLogger) Warn(msg string, args ...interface{})  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, args ...interface{}) {}

func TestValidateGoogleToken_LogsValidationFailure(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer userinfo.Close()

	logger := &recordingLogger{}
	h, err := NewHandler(&Config{
		Resource:         "http://localhost:8080",
		UserInfoEndpoint: userinfo.URL,
		Logger:           logger,
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	defer h.Close()

	next, _ := okHandler()
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	h.ValidateGoogleToken(next).ServeHTTP(rec, req)

	if len(logger.warns) != 1 {
		t.Fatalf("warn count = %d, want 1", len(logger.warns))
	}
	if logger.warns[0] != "token validation failed" {
		t.Errorf("warn = %q", logger.warns[0])
	}
}

func TestTokenCache_Expiry(t *testing.T) {
	cache := NewTokenCache(20*time.Millisecond, time.Hour)
	defer cache.Stop()

	cache.Put("tok", &GoogleUserInfo{Email: "user@example.com"})
	if got := cache.Get("tok"); got == nil {
		t.Fatal("Get() = nil immediately after Put()")
	}

	time.Sleep(30 * time.Millisecond)
	if got := cache.Get("tok"); got != nil {
		t.Errorf("Get() = %+v after TTL, want nil", got)
	}
}

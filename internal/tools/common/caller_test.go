package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teemow/ticktick-mcp/internal/mcp/oauth"
)

func TestCallerFromContext_NoUser(t *testing.T) {
	if got := CallerFromContext(context.Background()); got != LocalCaller {
		t.Errorf("CallerFromContext() = %q, want %q", got, LocalCaller)
	}
}

func TestCallerFromContext_AuthenticatedUser(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sub":"123","email":"user@example.com"}`))
	}))
	defer userinfo.Close()

	h, err := oauth.NewHandler(&oauth.Config{
		Resource:         "http://localhost:8080",
		UserInfoEndpoint: userinfo.URL,
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	defer h.Close()

	var caller string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = CallerFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer token")
	h.ValidateGoogleToken(next).ServeHTTP(httptest.NewRecorder(), req)

	if caller != "user@example.com" {
		t.Errorf("CallerFromContext() = %q, want authenticated email", caller)
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newHealthChecker(t *testing.T) (*HealthChecker, *ServerContext) {
	t.Helper()
	sc, err := NewServerContext(context.Background(), &probeAPI{}, false)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return NewHealthChecker(sc), sc
}

func TestLivenessHandler(t *testing.T) {
	h, _ := newHealthChecker(t)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestReadinessHandler(t *testing.T) {
	h, _ := newHealthChecker(t)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready: status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Checks["ticktick"] != "ok" {
		t.Errorf("ticktick check = %q", resp.Checks["ticktick"])
	}

	h.SetReady(false)
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready: status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestReadinessHandler_Shutdown(t *testing.T) {
	h, sc := newHealthChecker(t)
	sc.Shutdown()

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

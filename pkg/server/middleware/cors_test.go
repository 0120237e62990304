package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/wiretap/pkg/config"
)

func TestCORSMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	t.Run("adds CORS headers for allowed origin", func(t *testing.T) {
		wrapped := CORSMiddleware(CORSFromConfig(config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://viewer.example.com"},
		}))(handler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
		req.Header.Set("Origin", "https://viewer.example.com")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://viewer.example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if w.Header().Get("Access-Control-Expose-Headers") == "" {
			t.Error("expected exposed headers")
		}
	})

	t.Run("handles preflight OPTIONS request", func(t *testing.T) {
		wrapped := CORSMiddleware(&CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "PUT"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         3600,
		})(handler)

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/override", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Preflight should return 204, got %d", w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Methods") != "GET, PUT" {
			t.Errorf("unexpected methods %q", w.Header().Get("Access-Control-Allow-Methods"))
		}
		if w.Header().Get("Access-Control-Max-Age") != "3600" {
			t.Errorf("Access-Control-Max-Age = %v, want 3600", w.Header().Get("Access-Control-Max-Age"))
		}
	})

	t.Run("blocks disallowed origin", func(t *testing.T) {
		wrapped := CORSMiddleware(&CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
		})(handler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.com")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("Should not set CORS headers for disallowed origin")
		}
	})

	t.Run("skips CORS when disabled", func(t *testing.T) {
		wrapped := CORSMiddleware(CORSFromConfig(config.CORSConfig{
			AllowedOrigins: []string{"*"},
		}))(handler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("Should not set CORS headers when disabled")
		}
	})
}

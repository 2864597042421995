package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/companies", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestCorsMiddleware_Preflight(t *testing.T) {
	called := false
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/companies", nil))

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
	if called {
		t.Error("Expected preflight to short-circuit")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected Access-Control-Allow-Origin: *")
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	handler := correlationIDMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "abc123" {
		t.Errorf("Expected propagated correlation ID abc123, got %q", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if got := rr.Header().Get("X-Correlation-ID"); len(got) != 8 {
		t.Errorf("Expected generated 8-char correlation ID, got %q", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := newClientLimiter(2, time.Minute)
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	handler := rateLimitMiddleware(limiter)(okHandler())

	send := func(path, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := send("/api/companies", "10.0.0.1:5000"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	rr := send("/api/companies", "10.0.0.1:5001")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Expected Retry-After 30, got %q", got)
	}

	// Other clients and exempt paths are unaffected.
	if rr := send("/api/companies", "10.0.0.2:5000"); rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for second client, got %d", rr.Code)
	}
	if rr := send("/api/health", "10.0.0.1:5000"); rr.Code != http.StatusOK {
		t.Errorf("Expected health to be exempt, got %d", rr.Code)
	}
	if rr := send("/", "10.0.0.1:5000"); rr.Code != http.StatusOK {
		t.Errorf("Expected dashboard to be exempt, got %d", rr.Code)
	}

	// A token refills after window/max.
	now = now.Add(30 * time.Second)
	if rr := send("/api/companies", "10.0.0.1:5000"); rr.Code != http.StatusOK {
		t.Errorf("Expected 200 after refill, got %d", rr.Code)
	}
}

func TestClientLimiter_SweepsIdleVisitors(t *testing.T) {
	limiter := newClientLimiter(10, time.Minute)
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.reserve("a")
	limiter.reserve("b")
	if len(limiter.visitors) != 2 {
		t.Fatalf("Expected 2 visitors, got %d", len(limiter.visitors))
	}

	now = now.Add(2 * time.Minute)
	limiter.reserve("c")
	if len(limiter.visitors) != 1 {
		t.Errorf("Expected idle visitors swept, got %d", len(limiter.visitors))
	}
}

func TestClientLimiter_Disabled(t *testing.T) {
	limiter := newClientLimiter(0, time.Minute)
	for i := 0; i < 1000; i++ {
		if ok, _ := limiter.reserve("a"); !ok {
			t.Fatalf("request %d limited with limiting disabled", i)
		}
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		fwd    string
		want   string
	}{
		{"remote addr", "10.0.0.1:5000", "", "10.0.0.1"},
		{"forwarded", "10.0.0.1:5000", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{"no port", "10.0.0.1", "", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.fwd != "" {
				req.Header.Set("X-Forwarded-For", tt.fwd)
			}
			if got := clientKey(req); got != tt.want {
				t.Errorf("clientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

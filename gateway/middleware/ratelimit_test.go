package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"rpc": {RatePerSecond: 1, Burst: 1},
	})
	handler := limiter.Middleware("rpc")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.10:4444"

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"rpc": {RatePerSecond: 1, Burst: 1},
	})
	handler := limiter.Middleware("rpc")(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/", nil)
	first.RemoteAddr = "192.0.2.10:4444"
	second := httptest.NewRequest(http.MethodPost, "/", nil)
	second.RemoteAddr = "192.0.2.20:4444"

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, first)
	if res.Code != http.StatusOK {
		t.Fatalf("first client should pass, got %d", res.Code)
	}
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, second)
	if res.Code != http.StatusOK {
		t.Fatalf("second client should have its own bucket, got %d", res.Code)
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"rpc": {RatePerSecond: 1, Burst: 1},
	})
	limiter.ttl = 10 * time.Millisecond
	handler := limiter.Middleware("rpc")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.10:4444"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	limiter.mu.Lock()
	entries := len(limiter.visitors)
	limiter.mu.Unlock()
	if entries != 1 {
		t.Fatalf("expected one tracked visitor, got %d", entries)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		limiter.mu.Lock()
		entries = len(limiter.visitors)
		limiter.mu.Unlock()
		if entries == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("visitor entry was not evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRateLimiterUnknownRoutePassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil)
	handler := limiter.Middleware("unconfigured")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("unlimited route should always pass, got %d", res.Code)
		}
	}
}

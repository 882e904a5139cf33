package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newLimiter := func() *RateLimiter {
		rl := NewRateLimiter(1, 2, nil)
		rl.now = func() time.Time { return now }
		return rl
	}

	t.Run("burst then reject", func(t *testing.T) {
		rl := newLimiter()
		if !rl.allow("a") || !rl.allow("a") {
			t.Fatal("expected the burst to be allowed")
		}
		if rl.allow("a") {
			t.Error("expected the third request to be rejected")
		}
		if !rl.allow("b") {
			t.Error("clients should not share a bucket")
		}
	})

	t.Run("refills over time", func(t *testing.T) {
		rl := newLimiter()
		rl.allow("a")
		rl.allow("a")

		rl.now = func() time.Time { return now.Add(time.Second) }
		if !rl.allow("a") {
			t.Error("expected a token after one second")
		}
	})

	t.Run("sweeps idle clients", func(t *testing.T) {
		rl := newLimiter()
		rl.allow("a")
		rl.allow("b")

		rl.now = func() time.Time { return now.Add(rl.idle + time.Minute) }
		rl.allow("c")

		if len(rl.clients) != 1 {
			t.Errorf("expected idle clients to be dropped, have %d", len(rl.clients))
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rl := NewRateLimiter(0, 1, nil)
		handler := rl.Middleware(http.HandlerFunc(Health))

		for i := 0; i < 10; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i, w.Code)
			}
		}
	})
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Errorf("expected host part, got %q", got)
	}

	r.RemoteAddr = "10.0.0.2"
	if got := clientIP(r); got != "10.0.0.2" {
		t.Errorf("expected raw address, got %q", got)
	}
}

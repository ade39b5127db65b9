package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = c.now
	return rl, c
}

func TestAllowWindow(t *testing.T) {
	rl, c := newTestLimiter(t, 2)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients are counted separately")
	}

	c.t = c.t.Add(20 * time.Second)
	if rl.Allow("a") {
		t.Fatal("still inside the window")
	}
	if got := rl.RetryAfter("a"); got != 40*time.Second {
		t.Fatalf("RetryAfter = %v, want 40s", got)
	}

	c.t = c.t.Add(41 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("new window should allow again")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 2 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestDefaultsAndCleanup(t *testing.T) {
	rl, c := newTestLimiter(t, 0)
	if rl.requestsPerMinute != 60 || rl.staleAfter != 10*time.Minute {
		t.Fatalf("defaults not applied: %d %v", rl.requestsPerMinute, rl.staleAfter)
	}

	rl.Allow("old")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("new")
	rl.cleanupStaleEntries()
	if m := rl.GetMetrics(); m.ClientCount != 1 {
		t.Fatalf("client count after cleanup = %d", m.ClientCount)
	}
	rl.Stop()
	rl.Stop()
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	key := func(*http.Request) string { return "client" }

	tests := []struct {
		name    string
		onLimit func(http.ResponseWriter, *http.Request)
		want    int
	}{
		{"default handler", nil, http.StatusTooManyRequests},
		{"custom handler", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }, http.StatusTeapot},
	}

	h := rl.Middleware(key, nil)(ok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rr.Code)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			rl.Middleware(key, tt.onLimit)(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

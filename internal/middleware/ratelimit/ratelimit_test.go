package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int, methods ...string) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour, Methods: methods})
	t.Cleanup(l.Stop)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	l, now := newTestLimiter(t, 2)
	for i, want := range []bool{true, true, false, false} {
		if got := l.Allow("a"); got != want {
			t.Fatalf("request %d: Allow = %v, want %v", i, got, want)
		}
	}
	if !l.Allow("b") {
		t.Fatalf("other clients have their own budget")
	}
	if l.Hits() != 2 {
		t.Fatalf("hits = %d", l.Hits())
	}
	*now = now.Add(time.Minute)
	if !l.Allow("a") {
		t.Fatalf("budget should reset after the window")
	}
}

func TestLimiter_RemoveStale(t *testing.T) {
	l, now := newTestLimiter(t, 5)
	l.Allow("a")
	*now = now.Add(11 * time.Minute)
	l.Allow("b")
	l.removeStale()
	if l.ActiveClients() != 1 {
		t.Fatalf("active clients = %d", l.ActiveClients())
	}
}

func TestMiddleware_OnlyWrites(t *testing.T) {
	l, _ := newTestLimiter(t, 1, WriteMethods()...)
	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusOK},
		{http.MethodGet, http.StatusOK},
		{http.MethodDelete, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))
		if rec.Code != tt.want {
			t.Fatalf("%s: status %d, want %d", tt.method, rec.Code, tt.want)
		}
		if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("missing Retry-After header")
		}
	}
}

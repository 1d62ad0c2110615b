package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, limit int) (*Limiter, *time.Time) {
	t.Helper()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerWindow: limit, Window: time.Minute, Methods: []string{http.MethodPost}})
	rl.now = func() time.Time { return now }
	t.Cleanup(rl.Stop)
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	*now = now.Add(20 * time.Second)
	ok, retry := rl.Allow("1.2.3.4")
	if ok {
		t.Fatal("fourth request should be limited")
	}
	if retry != 40*time.Second {
		t.Errorf("retryAfter = %v, want 40s", retry)
	}

	if ok, _ := rl.Allow("5.6.7.8"); !ok {
		t.Error("other clients are tracked separately")
	}

	*now = now.Add(41 * time.Second)
	if ok, _ := rl.Allow("1.2.3.4"); !ok {
		t.Error("a new window should reset the counter")
	}

	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v", m)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 10)
	rl.Allow("a")
	*now = now.Add(90 * time.Second)
	rl.Allow("b")
	*now = now.Add(60 * time.Second)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(r *http.Request) string { return "client" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) }))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/transactions/", nil))
		return rec
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusCreated {
		t.Fatalf("first POST status = %d", rec.Code)
	}
	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}

	for i := 0; i < 5; i++ {
		if rec := do(http.MethodGet); rec.Code != http.StatusCreated {
			t.Fatalf("GET should not be limited, status = %d", rec.Code)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "1"},
		{300 * time.Millisecond, "1"},
		{59*time.Second + time.Millisecond, "60"},
		{30 * time.Second, "30"},
	}
	for _, tt := range tests {
		if got := RetryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("RetryAfterSeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

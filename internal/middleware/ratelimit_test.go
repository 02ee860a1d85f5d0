package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{
			name:       "single ip",
			header:     "203.0.113.1",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "multiple ips use first",
			header:     " 203.0.113.1 , 198.51.100.2 ",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "invalid forwarded falls back",
			header:     "invalid",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "empty forwarded uses remote host",
			header:     "",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "ipv6 forwarded",
			header:     "2001:db8::1",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 remote fallback",
			header:     "invalid",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::2",
		},
		{
			name:       "remote without port",
			header:     "invalid",
			remoteAddr: "203.0.113.1",
			want:       "203.0.113.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		d, _ := l.Allow(context.Background(), "k")
		if !d.Allowed {
			t.Fatalf("hit %d rejected", i+1)
		}
	}
	d, _ := l.Allow(context.Background(), "k")
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("third hit = %+v, want rejection", d)
	}
	if d, _ := l.Allow(context.Background(), "other"); !d.Allowed {
		t.Fatal("separate key should have its own bucket")
	}

	now = now.Add(time.Minute + time.Second)
	if d, _ := l.Allow(context.Background(), "k"); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("after window = %+v, want fresh bucket", d)
	}
}

type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.expires[key] = d
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(f.expires[key], nil)
}

func TestRedisLimiter(t *testing.T) {
	fake := &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
	l := NewRedisLimiter(fake, 2, time.Minute, "")

	for i := 0; i < 2; i++ {
		d, err := l.Allow(context.Background(), "chunk:user:u1")
		if err != nil || !d.Allowed {
			t.Fatalf("hit %d = %+v, %v", i+1, d, err)
		}
	}
	if fake.expires["rl:chunk:user:u1"] != time.Minute {
		t.Fatalf("expiry = %v, want 1m", fake.expires["rl:chunk:user:u1"])
	}
	d, err := l.Allow(context.Background(), "chunk:user:u1")
	if err != nil || d.Allowed {
		t.Fatalf("third hit = %+v, %v; want rejection", d, err)
	}
	if d.Reset != time.Minute {
		t.Fatalf("reset = %v", d.Reset)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	var limited int
	l := NewMemoryLimiter(1, time.Minute)
	h := RateLimit(l, ByUser("chunk"), func(*http.Request) { limited++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("u1"); rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("first = %d remaining %q", rec.Code, rec.Header().Get("X-RateLimit-Remaining"))
	}
	rec := do("u1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if limited != 1 {
		t.Fatalf("onLimited calls = %d", limited)
	}
	if rec := do("u2"); rec.Code != http.StatusOK {
		t.Fatalf("other user = %d", rec.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	fake := &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}, err: errors.New("connection refused")}
	h := RateLimit(NewRedisLimiter(fake, 1, time.Minute, ""), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("hit %d = %d, want pass-through", i+1, rec.Code)
		}
	}
}

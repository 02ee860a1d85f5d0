package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// KeyFunc extracts the bucket key for a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByClientIP keys buckets by the caller's address.
func ByClientIP(r *http.Request) string {
	return "ip:" + clientIPForRateLimit(r)
}

// ByUser keys buckets by the authenticated user, falling back to the client IP.
func ByUser(scope string) KeyFunc {
	return func(r *http.Request) string {
		if id := UserIDFromContext(r.Context()); id != "" {
			return scope + ":user:" + id
		}
		return scope + ":" + ByClientIP(r)
	}
}

type bucket struct {
	count int
	until time.Time
}

// MemoryLimiter is a process-local fixed window limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	per     time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, per time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		per:     per,
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok || now.After(b.until) {
		b = &bucket{count: 0, until: now.Add(m.per)}
		m.buckets[key] = b
		m.sweep(now)
	}
	d := Decision{Limit: m.limit, Reset: b.until.Sub(now)}
	if b.count >= m.limit {
		return d, nil
	}
	b.count++
	d.Allowed = true
	d.Remaining = m.limit - b.count
	return d, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.After(b.until) {
			delete(m.buckets, k)
		}
	}
}

type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter shares fixed windows across API replicas.
type RedisLimiter struct {
	client redisCounter
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client redisCounter, limit int, window time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := l.prefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}
	ttl, _ := l.client.TTL(ctx, redisKey).Result()
	if ttl < 0 {
		ttl = 0
	}
	d := Decision{Limit: l.limit, Reset: ttl}
	if count > int64(l.limit) {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = l.limit - int(count)
	return d, nil
}

// RateLimit rejects requests over the limiter's budget with 429. Limiter
// errors let the request through.
func RateLimit(limiter Limiter, key KeyFunc, onLimited func(*http.Request)) func(http.Handler) http.Handler {
	if key == nil {
		key = ByClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			d, err := limiter.Allow(r.Context(), k)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			reset := int(d.Reset.Round(time.Second).Seconds())
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(reset))
			if !d.Allowed {
				if onLimited != nil {
					onLimited(r)
				}
				w.Header().Set("Retry-After", strconv.Itoa(reset))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":           errorBody{Code: "rate_limited", Message: "rate limit exceeded"},
					"retry_after_sec": reset,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}

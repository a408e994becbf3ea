package handlers

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// RateLimiter allows at most limit hits per key in a fixed window that
// starts with the key's first hit.
type RateLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	hits   *ttlcache.Cache[string, int]
}

// NewRateLimiter returns a limiter; limit <= 0 disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits: ttlcache.New[string, int](
			ttlcache.WithTTL[string, int](window),
			ttlcache.WithDisableTouchOnHit[string, int](),
		),
	}
}

// Start runs the expired-entry janitor and blocks until Stop is called.
func (l *RateLimiter) Start() {
	l.hits.Start()
}

// Stop ends the janitor started by Start.
func (l *RateLimiter) Stop() {
	l.hits.Stop()
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	item := l.hits.Get(key)
	if item == nil {
		l.hits.Set(key, 1, ttlcache.DefaultTTL)
		return true
	}
	n := item.Value()
	if n >= l.limit {
		return false
	}
	remaining := time.Until(item.ExpiresAt())
	if remaining <= 0 {
		l.hits.Set(key, 1, ttlcache.DefaultTTL)
		return true
	}
	l.hits.Set(key, n+1, remaining)
	return true
}

// RetryAfter is how long key must wait for its window to reset, rounded up
// to whole seconds and never less than one.
func (l *RateLimiter) RetryAfter(key string) time.Duration {
	wait := l.window
	l.mu.Lock()
	if item := l.hits.Get(key); item != nil {
		wait = time.Until(item.ExpiresAt())
	}
	l.mu.Unlock()
	if wait < time.Second {
		return time.Second
	}
	return (wait + time.Second - 1).Truncate(time.Second)
}

// clientIP is the first X-Forwarded-For hop, else the connection's address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the limit with 429.
func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !h.Limiter.Allow(ip) {
			h.Metrics.observeQuery("rate_limited")
			w.Header().Set("Retry-After", strconv.Itoa(int(h.Limiter.RetryAfter(ip)/time.Second)))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please wait a minute and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

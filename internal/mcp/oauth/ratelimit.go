package oauth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// bucket is a simple token bucket for one client IP.
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	lastSeen time.Time
}

// RateLimiter enforces a per-IP token bucket rate limit.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	rate       float64
	burst      float64
	trustProxy bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter creates a per-IP rate limiter allowing rate requests per
// second with the given burst. A cleanup goroutine removes buckets that
// have been idle for longer than cleanupInterval.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Rate * 2
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultRateLimitCleanupInterval
	}
	rl := &RateLimiter{
		buckets:    make(map[string]*bucket),
		rate:       float64(cfg.Rate),
		burst:      float64(burst),
		trustProxy: cfg.TrustProxy,
		stopCh:     make(chan struct{}),
	}
	go rl.cleanupLoop(interval)
	return rl
}

// Allow reports whether a request from the given IP may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.rate <= 0 {
		return true
	}

	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: time.Now()}
		rl.buckets[ip] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastSeen).Seconds()
	b.lastSeen = now
	b.tokens += elapsed * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Stop terminates the cleanup goroutine. Safe to call multiple times.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.removeIdle(interval)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) removeIdle(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	rl.mu.Lock()
	for ip, b := range rl.buckets {
		b.mu.Lock()
		idle := b.lastSeen.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(rl.buckets, ip)
		}
	}
	rl.mu.Unlock()
}

// Middleware returns an HTTP middleware that rejects requests exceeding
// the per-IP rate limit with 429 Too Many Requests.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client IP from a request. Forwarding headers are
// only honored when TrustProxy is set.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// first hop is the original client
			if idx := strings.IndexByte(xff, ','); idx >= 0 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
		if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
			return strings.TrimSpace(xrip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

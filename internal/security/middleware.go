// Package security carries the transport-level protections: CORS, security
// headers and a coarse per-IP request limiter in front of the whole mux.
package security

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"masterfade-api/internal/observability"
	"masterfade-api/internal/respond"
)

func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func CORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestLimiter caps requests per client IP over a sliding window. This is
// the blunt transport guard; the per-email reset limiter in internal/auth is
// the one with real policy.
type RequestLimiter struct {
	mu      sync.Mutex
	maxHits int
	window  time.Duration
	hits    map[string][]time.Time
	maxKeys int
	nowFn   func() time.Time
}

func NewRequestLimiter(maxHits int, window time.Duration) *RequestLimiter {
	if maxHits <= 0 {
		maxHits = 200
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RequestLimiter{
		maxHits: maxHits,
		window:  window,
		hits:    make(map[string][]time.Time),
		maxKeys: 5000,
		nowFn:   time.Now,
	}
}

func (l *RequestLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := observability.ClientIP(r)

		allowed, retryAfter := l.allow(ip, l.nowFn().UTC())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			respond.Error(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"too many requests, try again later", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RequestLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := make([]time.Time, 0, len(l.hits[ip])+1)
	for _, hit := range l.hits[ip] {
		if hit.After(threshold) {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= l.maxHits {
		retryAfter := recent[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.hits[ip] = recent
		return false, retryAfter
	}

	l.hits[ip] = append(recent, now)

	// Bound memory: drop idle IPs once the map grows past the cap.
	if len(l.hits) > l.maxKeys {
		for key, value := range l.hits {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(l.hits, key)
			}
		}
	}

	return true, 0
}

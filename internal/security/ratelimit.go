package security

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-key token bucket limiter. Idle buckets expire from
// the cache after the TTL.
type RateLimiter struct {
	limiters *ttlcache.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows burst requests per key, refilled evenly over window.
// Call Stop to release the cache's cleanup goroutine.
func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	cache := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](2 * window),
	)
	go cache.Start()

	return &RateLimiter{
		limiters: cache,
		limit:    rate.Every(window / time.Duration(burst)),
		burst:    burst,
	}
}

// Allow consumes one token for key and reports whether the request may proceed
func (rl *RateLimiter) Allow(key string) bool {
	item, _ := rl.limiters.GetOrSet(key, rate.NewLimiter(rl.limit, rl.burst))
	return item.Value().Allow()
}

// Stop ends the background expiry loop
func (rl *RateLimiter) Stop() {
	rl.limiters.Stop()
}

// GetClientIP extracts the client IP from the request
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter implements per-client rate limiting using a token bucket.
// Buckets refill continuously at limit tokens per period up to burst.
type RateLimiter struct {
	buckets    map[string]*tokenBucket
	bucketsMux sync.Mutex
	limit      int
	period     time.Duration
	burst      int
	now        func() time.Time
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter. burst <= 0 means burst = limit.
func NewRateLimiter(limit int, period time.Duration, burst int) *RateLimiter {
	if burst <= 0 {
		burst = limit
	}
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		period:  period,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether a request for key may proceed and consumes a token
func (rl *RateLimiter) Allow(key string) bool {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	now := rl.now()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: float64(rl.burst), lastSeen: now}
		rl.buckets[key] = bucket
	}

	elapsed := now.Sub(bucket.lastSeen)
	if elapsed > 0 {
		bucket.tokens += elapsed.Seconds() * float64(rl.limit) / rl.period.Seconds()
		if bucket.tokens > float64(rl.burst) {
			bucket.tokens = float64(rl.burst)
		}
	}
	bucket.lastSeen = now

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()
	return len(rl.buckets)
}

// cleanup drops buckets idle for longer than one period; such a bucket is
// full again and indistinguishable from a fresh one
func (rl *RateLimiter) cleanup() {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	cutoff := rl.now().Add(-rl.period)
	for key, bucket := range rl.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup runs cleanup every interval until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

// ClientKey identifies the caller for rate limiting: the remote host, or the
// first X-Forwarded-For hop when trustProxy is set
func ClientKey(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		if hop := strings.TrimSpace(strings.Split(fwd, ",")[0]); hop != "" {
			return hop
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

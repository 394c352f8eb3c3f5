package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/WillKirkmanM/proxy/internal/config"
)

// TokenBucket implements token bucket algorithm for rate limiting
// Allows burst traffic up to bucket capacity while maintaining sustained rate
// Refills tokens at specified rate to prevent resource exhaustion
// Time Complexity: O(1) for token operations
// Space Complexity: O(1) per bucket instance
type TokenBucket struct {
	capacity   int        // Maximum tokens in bucket
	tokens     int        // Current available tokens
	refillRate int        // Tokens added per second
	lastRefill time.Time  // Last time bucket was refilled
	mutex      sync.Mutex // Protects bucket state
}

// NewTokenBucket creates token bucket with specified capacity and refill rate
// Initializes bucket at full capacity for immediate availability
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// TryConsume attempts to consume specified number of tokens
// Returns true if tokens available, false if rate limit exceeded
// Refills bucket based on elapsed time since last refill
func (tb *TokenBucket) TryConsume(tokens int) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()

	if tb.tokens >= tokens {
		tb.tokens -= tokens
		return true
	}
	return false
}

// refill adds tokens to bucket based on elapsed time
// Calculates tokens to add using time difference and refill rate
// Caps tokens at bucket capacity to prevent overflow
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int(elapsed.Seconds()) * tb.refillRate

	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// RateLimiter admits or rejects connections by client IP before they
// ever reach the forwarding pipeline. There is no HTTP handler chain
// in a raw-socket accept loop, so this is driven directly by Allow
// rather than by wrapping an http.Handler.
// Time Complexity: O(1) for rate limit checks
// Space Complexity: O(n) where n is number of unique client IPs
type RateLimiter struct {
	buckets    map[string]*TokenBucket // Per-client token buckets
	mutex      sync.RWMutex            // Protects buckets map
	capacity   int                     // Bucket capacity
	refillRate int                     // Tokens per second
}

// NewRateLimiter creates rate limiter with specified limits
// Initializes empty bucket map for lazy client bucket creation
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   cfg.Capacity,
		refillRate: cfg.RefillRate,
	}
}

// Allow reports whether a connection from clientIP may proceed,
// consuming one token from its bucket. The accept loop calls this
// right after accepting a connection and closes it immediately on
// false, before the forwarding pipeline ever sees it.
func (rl *RateLimiter) Allow(clientIP string) bool {
	bucket := rl.getBucket(clientIP)
	return bucket.TryConsume(1)
}

// getBucket retrieves or creates token bucket for client IP
// Uses lazy initialisation to avoid memory waste for inactive clients
// Double-checked locking pattern for thread safety and performance
func (rl *RateLimiter) getBucket(clientIP string) *TokenBucket {
	rl.mutex.RLock()
	bucket, exists := rl.buckets[clientIP]
	rl.mutex.RUnlock()

	if exists {
		return bucket
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if bucket, exists := rl.buckets[clientIP]; exists {
		return bucket
	}

	bucket = NewTokenBucket(rl.capacity, rl.refillRate)
	rl.buckets[clientIP] = bucket
	return bucket
}

// ClientIP strips the port off a net.Conn's RemoteAddr string, falling
// back to the raw address if it carries no port.
func ClientIP(remoteAddr string) string {
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}
	return remoteAddr
}

package middleware

import (
	"testing"

	"github.com/WillKirkmanM/proxy/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_AllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	assert.True(t, tb.TryConsume(1))
	assert.True(t, tb.TryConsume(1))
	assert.True(t, tb.TryConsume(1))
	assert.False(t, tb.TryConsume(1), "bucket should be exhausted")
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Capacity: 1, RefillRate: 0})

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"), "same client should be throttled")
	assert.True(t, rl.Allow("5.6.7.8"), "different client has its own bucket")
}

func TestClientIP_StripsPort(t *testing.T) {
	assert.Equal(t, "1.2.3.4", ClientIP("1.2.3.4:5678"))
	assert.Equal(t, "[::1]", ClientIP("[::1]:5678"))
}

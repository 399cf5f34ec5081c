package oauthflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUpToLimitThenDenies(t *testing.T) {
	rl := NewRateLimiter(5, time.Hour)
	for i := 0; i < 5; i++ {
		allowed, _ := rl.Allow("alice")
		require.True(t, allowed)
	}
	allowed, retryAfter := rl.Allow("alice")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestRateLimiter_SlidingWindowExpiresOldAttempts(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	allowed, _ := rl.Allow("bob")
	require.True(t, allowed)

	allowed, _ = rl.Allow("bob")
	assert.False(t, allowed)

	time.Sleep(60 * time.Millisecond)
	allowed, _ = rl.Allow("bob")
	assert.True(t, allowed)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	allowedA, _ := rl.Allow("alice")
	allowedB, _ := rl.Allow("bob")
	assert.True(t, allowedA)
	assert.True(t, allowedB)
}

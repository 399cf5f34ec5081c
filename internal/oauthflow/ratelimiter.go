package oauthflow

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding window of attempts per key, used by the
// app-password provisioning endpoint in multi-user Basic mode: 5
// attempts per user per hour.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter builds a RateLimiter with the given limit and window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records an attempt for key and reports whether it's within the
// window's limit. When denied, retryAfter is how long the caller should
// wait before the oldest attempt in the window expires.
func (r *RateLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	now := r.now()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.attempts[key][:0]
	for _, t := range r.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= r.limit {
		r.attempts[key] = kept
		return false, kept[0].Add(r.window).Sub(now)
	}

	kept = append(kept, now)
	r.attempts[key] = kept
	return true, 0
}

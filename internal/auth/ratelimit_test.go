package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, Window: time.Minute, Lockout: 5 * time.Minute})
	t.Cleanup(rl.Stop)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("1.2.3.4", "a@example.com")
	assert.True(t, ok)

	assert.False(t, rl.RecordFailure("1.2.3.4", "a@example.com"))
	assert.True(t, rl.RecordFailure("1.2.3.4", "A@example.com"))

	ok, retry := rl.Allow("1.2.3.4", "a@example.com")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute, retry)

	ok, _ = rl.Allow("5.6.7.8", "a@example.com")
	assert.True(t, ok, "other IPs are tracked separately")

	now = now.Add(6 * time.Minute)
	ok, _ = rl.Allow("1.2.3.4", "a@example.com")
	assert.True(t, ok)

	rl.sweep()
	assert.Empty(t, rl.attempts)
}

func TestRateLimiter_SuccessClears(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2})
	t.Cleanup(rl.Stop)

	rl.RecordFailure("ip", "a@example.com")
	rl.RecordSuccess("ip", "a@example.com")
	assert.False(t, rl.RecordFailure("ip", "a@example.com"))
}

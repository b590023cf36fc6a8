package auth

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles login attempts per client IP and email within a
// fixed window.
type RateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*attemptRecord
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

type RateLimitConfig struct {
	MaxAttempts     int
	Window          time.Duration
	Lockout         time.Duration
	CleanupInterval time.Duration
}

// NewRateLimiter starts a background sweep of expired records; call Stop to
// end it. Zero config values fall back to 5 attempts per 15m, locking 30m.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = defaultLockout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		attempts:    make(map[string]*attemptRecord),
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		lockout:     cfg.Lockout,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	go rl.sweepLoop(cfg.CleanupInterval)
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func key(ip, email string) string {
	return ip + "|" + strings.ToLower(strings.TrimSpace(email))
}

// Allow reports whether another attempt may be made and, if not, how long
// until the lockout ends.
func (rl *RateLimiter) Allow(ip, email string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[key(ip, email)]
	if !ok {
		return true, 0
	}
	if now.Before(rec.lockedUntil) {
		return false, rec.lockedUntil.Sub(now)
	}
	if now.Sub(rec.firstAttempt) > rl.window || rec.count < rl.maxAttempts {
		return true, 0
	}
	return false, rl.lockout
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lockout.
func (rl *RateLimiter) RecordFailure(ip, email string) bool {
	now := rl.now()
	k := key(ip, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[k]
	if !ok || now.Sub(rec.firstAttempt) > rl.window {
		rec = &attemptRecord{firstAttempt: now}
		rl.attempts[k] = rec
	}
	rec.count++
	if rec.count >= rl.maxAttempts {
		rec.lockedUntil = now.Add(rl.lockout)
		return true
	}
	return false
}

func (rl *RateLimiter) RecordSuccess(ip, email string) {
	rl.mu.Lock()
	delete(rl.attempts, key(ip, email))
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, rec := range rl.attempts {
		if now.Sub(rec.firstAttempt) > rl.window && !now.Before(rec.lockedUntil) {
			delete(rl.attempts, k)
		}
	}
}

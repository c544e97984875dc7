package web

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Login rate-limit defaults, applied when configuration leaves a knob
// unset.
const (
	defaultLoginMaxFailures = 5
	defaultLoginWindow      = 15 * time.Minute
	defaultLoginBlock       = 15 * time.Minute
	limiterCleanupEvery     = 5 * time.Minute
)

// loginFailures is one client address's failure record: how many failed
// mints landed in the current window, and until when the address is
// blocked, if it is.
type loginFailures struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
}

// RateLimiter slows down credential guessing against the session mint
// endpoint: a client address that keeps failing login inside the window is
// blocked until a deadline. It runs on the HTTP server's goroutines,
// outside the loop, hence the mutex.
type RateLimiter struct {
	mu          sync.RWMutex
	failures    map[string]*loginFailures
	maxFailures int
	window      time.Duration
	blockFor    time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a limiter that blocks an address after
// maxFailures failed logins within window, for blockFor. Non-positive
// values select the defaults. The background sweep of stale records starts
// immediately.
func NewRateLimiter(maxFailures int, window, blockFor time.Duration) *RateLimiter {
	if maxFailures <= 0 {
		maxFailures = defaultLoginMaxFailures
	}
	if window <= 0 {
		window = defaultLoginWindow
	}
	if blockFor <= 0 {
		blockFor = defaultLoginBlock
	}

	rl := &RateLimiter{
		failures:    make(map[string]*loginFailures),
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// RecordFailure notes a failed login for ip and reports whether the
// address is now (or still) blocked. A lapsed block or window opens a
// fresh window instead of extending the old count.
func (rl *RateLimiter) RecordFailure(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	e := rl.failures[ip]
	if e == nil {
		rl.failures[ip] = &loginFailures{count: 1, windowStart: now}
		return false
	}

	if now.Before(e.blockedUntil) {
		return true
	}
	if !e.blockedUntil.IsZero() || now.Sub(e.windowStart) > rl.window {
		*e = loginFailures{count: 1, windowStart: now}
		return false
	}

	e.count++
	if e.count >= rl.maxFailures {
		e.blockedUntil = now.Add(rl.blockFor)
		log.Warn().
			Str("ip", ip).
			Int("failures", e.count).
			Time("blocked_until", e.blockedUntil).
			Msg("address blocked after repeated failed logins")
		return true
	}

	return false
}

// Blocked reports whether ip is inside a block deadline. Stale records are
// left for the sweep; reads never upgrade the lock.
func (rl *RateLimiter) Blocked(ip string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	e := rl.failures[ip]
	return e != nil && time.Now().Before(e.blockedUntil)
}

// Reset drops the failure record for ip; called on successful login.
func (rl *RateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.failures, ip)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now())
		case <-rl.stopCleanup:
			return
		}
	}
}

// sweep drops records whose block deadline or failure window has lapsed.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, e := range rl.failures {
		if !e.blockedUntil.IsZero() {
			if now.After(e.blockedUntil) {
				delete(rl.failures, ip)
			}
			continue
		}
		if now.Sub(e.windowStart) > rl.window {
			delete(rl.failures, ip)
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

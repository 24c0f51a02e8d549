package api

import (
	"sync"
	"time"
)

// loginRateLimiter tracks failed login attempts per account and enforces
// exponential backoff. Keys are normalized usernames.
type loginRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	now      func() time.Time
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

const (
	// maxFailures is the number of consecutive failures before lockout
	// begins.
	maxFailures = 5
	// baseLockout is the initial lockout duration after maxFailures.
	baseLockout = 1 * time.Minute
	// maxLockout caps the exponential backoff.
	maxLockout = 15 * time.Minute
	// attemptExpiry is how long after the last failure before a record
	// is garbage-collected.
	attemptExpiry = 1 * time.Hour
)

func newLoginRateLimiter() *loginRateLimiter {
	return &loginRateLimiter{
		attempts: make(map[string]*attemptRecord),
		now:      time.Now,
	}
}

// check reports whether the account is currently locked out, and if so for
// how much longer.
func (l *loginRateLimiter) check(account string) (blocked bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.attempts[account]
	if !ok {
		return false, 0
	}
	now := l.now()
	if now.Sub(rec.lastFailure) > attemptExpiry {
		delete(l.attempts, account)
		return false, 0
	}
	if now.Before(rec.lockedUntil) {
		return true, rec.lockedUntil.Sub(now)
	}
	return false, 0
}

// recordFailure notes a failed attempt, extending the lockout once the
// failure threshold is crossed.
func (l *loginRateLimiter) recordFailure(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.attempts[account]
	if !ok {
		rec = &attemptRecord{}
		l.attempts[account] = rec
	}
	rec.failures++
	rec.lastFailure = l.now()

	if rec.failures >= maxFailures {
		lockout := baseLockout << (rec.failures - maxFailures)
		if lockout > maxLockout || lockout <= 0 {
			lockout = maxLockout
		}
		rec.lockedUntil = l.now().Add(lockout)
	}
}

// recordSuccess clears the account's failure history.
func (l *loginRateLimiter) recordSuccess(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, account)
}

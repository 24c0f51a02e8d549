package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenLimiter(start time.Time) (*loginRateLimiter, *time.Time) {
	l := newLoginRateLimiter()
	now := start
	l.now = func() time.Time { return now }
	return l, &now
}

func TestRateLimiterAllowsFreshAccount(t *testing.T) {
	l, _ := frozenLimiter(time.Now())
	blocked, _ := l.check("alice")
	assert.False(t, blocked)
}

func TestRateLimiterLocksAfterThreshold(t *testing.T) {
	l, _ := frozenLimiter(time.Now())

	for i := 0; i < maxFailures-1; i++ {
		l.recordFailure("alice")
		blocked, _ := l.check("alice")
		assert.False(t, blocked, "failure %d should not lock yet", i+1)
	}

	l.recordFailure("alice")
	blocked, retryAfter := l.check("alice")
	require.True(t, blocked)
	assert.Equal(t, baseLockout, retryAfter)
}

func TestRateLimiterBackoffGrowsAndCaps(t *testing.T) {
	l, now := frozenLimiter(time.Now())

	for i := 0; i < maxFailures; i++ {
		l.recordFailure("alice")
	}
	_, first := l.check("alice")

	l.recordFailure("alice")
	_, second := l.check("alice")
	assert.Equal(t, 2*first, second)

	// Pile on failures; the lockout must top out at maxLockout.
	for i := 0; i < 20; i++ {
		l.recordFailure("alice")
	}
	_, capped := l.check("alice")
	assert.Equal(t, maxLockout, capped)

	// And the lock expires once the clock passes it.
	*now = now.Add(maxLockout + time.Second)
	blocked, _ := l.check("alice")
	assert.False(t, blocked)
}

func TestRateLimiterSuccessClearsHistory(t *testing.T) {
	l, _ := frozenLimiter(time.Now())

	for i := 0; i < maxFailures; i++ {
		l.recordFailure("alice")
	}
	blocked, _ := l.check("alice")
	require.True(t, blocked)

	l.recordSuccess("alice")
	blocked, _ = l.check("alice")
	assert.False(t, blocked)
}

func TestRateLimiterExpiresStaleRecords(t *testing.T) {
	l, now := frozenLimiter(time.Now())

	for i := 0; i < maxFailures; i++ {
		l.recordFailure("alice")
	}
	*now = now.Add(attemptExpiry + time.Minute)

	blocked, _ := l.check("alice")
	assert.False(t, blocked)
	assert.Empty(t, l.attempts)
}

func TestRateLimiterIsPerAccount(t *testing.T) {
	l, _ := frozenLimiter(time.Now())

	for i := 0; i < maxFailures; i++ {
		l.recordFailure("alice")
	}
	blocked, _ := l.check("bob")
	assert.False(t, blocked)
}

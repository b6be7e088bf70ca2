package session

import (
	"fmt"
	"sync"
	"time"
)

// Default circuit breaker tuning
const (
	DefaultBreakerThreshold = 3
	DefaultBreakerCooldown  = 30 * time.Second
)

// BlockedError indicates session creation is short-circuited because
// the circuit breaker is open.
type BlockedError struct {
	Failures   int
	RetryAfter time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("session creation blocked after %d consecutive failures; retry in %s", e.Failures, e.RetryAfter.Round(time.Second))
}

// Breaker counts consecutive session-creation failures. After the
// threshold is reached, further attempts are rejected until the
// cooldown window elapses; any success resets the counter to zero.
// State is per-process and in-memory only.
type Breaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	threshold   int
	cooldown    time.Duration
	now         func() time.Time
}

// NewBreaker creates a breaker with the given threshold and cooldown
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow returns a BlockedError while the breaker is open. Once the
// cooldown has elapsed the counter resets and attempts resume.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	elapsed := b.now().Sub(b.lastFailure)
	if elapsed >= b.cooldown {
		b.failures = 0
		return nil
	}
	return &BlockedError{Failures: b.failures, RetryAfter: b.cooldown - elapsed}
}

// RecordSuccess resets the failure counter
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// RecordFailure counts one failed creation attempt
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
}

package services

import (
	"fmt"
	"sync"
	"time"
)

// AlertRateLimiter caps how many alert messages go to one recipient per
// window. Rookie call-ups cluster around roster deadlines and a noisy slate
// should not turn into thirty texts.
type AlertRateLimiter struct {
	mu          sync.Mutex
	sent        map[string][]time.Time
	maxMessages int
	window      time.Duration
}

// NewAlertRateLimiter creates a limiter allowing maxMessages per recipient
// per window.
func NewAlertRateLimiter(maxMessages int, window time.Duration) *AlertRateLimiter {
	return &AlertRateLimiter{
		sent:        make(map[string][]time.Time),
		maxMessages: maxMessages,
		window:      window,
	}
}

// Allow checks whether another message may go to the recipient, recording it
// when allowed.
func (rl *AlertRateLimiter) Allow(recipient string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.expire(recipient, now)

	if len(rl.sent[recipient]) >= rl.maxMessages {
		return fmt.Errorf("rate limit exceeded: maximum %d alerts per %v", rl.maxMessages, rl.window)
	}

	rl.sent[recipient] = append(rl.sent[recipient], now)
	return nil
}

func (rl *AlertRateLimiter) expire(recipient string, now time.Time) {
	sent, exists := rl.sent[recipient]
	if !exists {
		return
	}
	cutoff := now.Add(-rl.window)
	valid := sent[:0]
	for _, t := range sent {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.sent, recipient)
		return
	}
	rl.sent[recipient] = valid
}

// Reset clears all rate limiting data
func (rl *AlertRateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sent = make(map[string][]time.Time)
}

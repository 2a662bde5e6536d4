package limiter

import (
	"context"
	"fmt"
	"time"
)

// Counter is a windowed counter store.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Limiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	now     func() time.Time
}

type CheckResult struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
	ResetAt   int64 `json:"reset_at"`
	Limit     int64 `json:"limit"`
}

// New returns a fixed-window limiter allowing limit actions per window.
func New(counter Counter, limit int64, window time.Duration) *Limiter {
	return &Limiter{counter: counter, limit: limit, window: window, now: time.Now}
}

func (l *Limiter) Check(ctx context.Context, clientID, action string) (*CheckResult, error) {
	key := fmt.Sprintf("rate:%s:%s", clientID, action)

	count, ttl, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		return nil, fmt.Errorf("failed to increment counter: %w", err)
	}
	if ttl <= 0 {
		ttl = l.window
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &CheckResult{
		Allowed:   count <= l.limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl).Unix(),
		Limit:     l.limit,
	}, nil
}

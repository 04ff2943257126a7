package pipeline

import (
	"context"
	"sync"
	"time"
)

// DefaultKindDelay is the pause between kinds, sized for the provider's
// per-minute request quota.
const DefaultKindDelay = 65 * time.Second

// Pacer blocks until the next unit of work may start.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PacerFunc adapts a function to Pacer.
type PacerFunc func(ctx context.Context) error

// Wait calls f.
func (f PacerFunc) Wait(ctx context.Context) error { return f(ctx) }

// FixedDelay sleeps for a constant duration.
type FixedDelay time.Duration

// Wait sleeps for d or until ctx is done.
func (d FixedDelay) Wait(ctx context.Context) error {
	if !sleepWithContext(ctx, time.Duration(d)) {
		return ctx.Err()
	}
	return nil
}

// NoDelay never blocks.
var NoDelay Pacer = PacerFunc(func(ctx context.Context) error { return ctx.Err() })

// RequestBudget is a token bucket that spaces provider calls to at most
// perMinute requests per minute with a burst of burst.
type RequestBudget struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
	nowFn  func() time.Time
}

// NewRequestBudget builds a budget; perMinute <= 0 returns nil, which callers treat as unlimited.
func NewRequestBudget(perMinute, burst int) *RequestBudget {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RequestBudget{
		rate:     float64(perMinute) / 60,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
		nowFn:    time.Now,
	}
}

// Wait blocks until one request token is available.
func (b *RequestBudget) Wait(ctx context.Context) error {
	if b == nil {
		return ctx.Err()
	}
	for {
		b.mu.Lock()
		now := b.nowFn()
		if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
			b.tokens += elapsed * b.rate
			if b.tokens > b.capacity {
				b.tokens = b.capacity
			}
			b.last = now
		}
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		deficit := 1 - b.tokens
		b.mu.Unlock()

		wait := time.Duration(deficit / b.rate * float64(time.Second))
		if wait <= 0 {
			wait = time.Millisecond
		}
		if !sleepWithContext(ctx, wait) {
			return ctx.Err()
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

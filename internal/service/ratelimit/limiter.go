package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a keyed token bucket. Buckets that have refilled completely are
// dropped once the map grows past pruneAt.
type Limiter struct {
	mu      sync.Mutex
	m       map[string]*bucket
	now     func() time.Time
	pruneAt int
}

func New() *Limiter {
	return &Limiter{m: make(map[string]*bucket), now: time.Now, pruneAt: 4096}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= l.pruneAt {
			l.pruneLocked(now)
		}
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	b.refill(now)

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}

func (l *Limiter) pruneLocked(now time.Time) {
	for k, b := range l.m {
		b.refill(now)
		if b.tokens >= b.capacity {
			delete(l.m, k)
		}
	}
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

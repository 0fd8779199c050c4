package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// attemptLimiter caps PIN verification attempts per key id. Buckets idle
// longer than ttl are swept on the next use.
type attemptLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	entries map[string]*attemptBucket
}

type attemptBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newAttemptLimiter(limit rate.Limit, burst int, ttl time.Duration) *attemptLimiter {
	return &attemptLimiter{
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		entries: make(map[string]*attemptBucket),
	}
}

func (m *attemptLimiter) allow(key string) bool {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.entries[key]
	if b == nil {
		b = &attemptBucket{lim: rate.NewLimiter(m.limit, m.burst), lastSeen: now}
		m.entries[key] = b
	}
	b.lastSeen = now

	for k, v := range m.entries {
		if now.Sub(v.lastSeen) > m.ttl {
			delete(m.entries, k)
		}
	}
	return b.lim.Allow()
}

// reset restores the full attempt budget after a successful verification.
func (m *attemptLimiter) reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows of a configured interval.
// The caller passes the current time so behaviour is deterministic under test.
type Limiter interface {
	// Allow admits the request when fewer than limit requests were counted
	// for key in the window containing now, and counts it.
	Allow(ctx context.Context, key string, limit int, now time.Time) (bool, error)
	// Remaining returns how many more requests key may make in the current window.
	Remaining(ctx context.Context, key string, limit int, now time.Time) (int, error)
	// ResetAt returns when the window containing now ends.
	ResetAt(now time.Time) time.Time
}

// DefaultInterval is the window length used when none is configured
const DefaultInterval = time.Hour

// Memory is a process-local Limiter. All counters are cleared together when
// a window boundary is crossed; the first window starts at the first call.
type Memory struct {
	mu          sync.Mutex
	interval    time.Duration
	windowStart time.Time
	counts      map[string]int
}

// NewMemory creates an in-memory limiter with the given window interval
func NewMemory(interval time.Duration) *Memory {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Memory{
		interval: interval,
		counts:   make(map[string]int),
	}
}

// Allow implements Limiter
func (m *Memory) Allow(_ context.Context, key string, limit int, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roll(now)
	if m.counts[key] >= limit {
		return false, nil
	}
	m.counts[key]++
	return true, nil
}

// Remaining implements Limiter
func (m *Memory) Remaining(_ context.Context, key string, limit int, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roll(now)
	if r := limit - m.counts[key]; r > 0 {
		return r, nil
	}
	return 0, nil
}

// ResetAt implements Limiter
func (m *Memory) ResetAt(now time.Time) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roll(now)
	return m.windowStart.Add(m.interval)
}

// roll advances the window to the one containing now, clearing all counters
// when a boundary was crossed. Caller holds mu.
func (m *Memory) roll(now time.Time) {
	if m.windowStart.IsZero() {
		m.windowStart = now
		return
	}
	elapsed := now.Sub(m.windowStart)
	if elapsed < m.interval {
		return
	}
	k := elapsed / m.interval
	m.windowStart = m.windowStart.Add(k * m.interval)
	clear(m.counts)
}

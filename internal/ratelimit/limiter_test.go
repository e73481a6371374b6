package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimitAndReset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		ok, err := m.Allow(ctx, "1.2.3.4", 10, start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.True(t, ok, "call %d should be allowed", i+1)
	}

	ok, err := m.Allow(ctx, "1.2.3.4", 10, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "11th call in the window must be rejected")

	// a different key has its own counter
	ok, _ = m.Allow(ctx, "5.6.7.8", 10, start.Add(30*time.Minute))
	assert.True(t, ok)

	// next window: counting restarts from zero
	after := start.Add(time.Hour)
	rem, _ := m.Remaining(ctx, "1.2.3.4", 10, after)
	assert.Equal(t, 10, rem)
	ok, _ = m.Allow(ctx, "1.2.3.4", 10, after)
	assert.True(t, ok)
	rem, _ = m.Remaining(ctx, "1.2.3.4", 10, after)
	assert.Equal(t, 9, rem)
}

func TestMemoryWindowBoundaries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	start := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	_, _ = m.Allow(ctx, "k", 1, start)
	assert.Equal(t, start.Add(time.Hour), m.ResetAt(start))

	// skipping several windows keeps the original alignment
	late := start.Add(3*time.Hour + 20*time.Minute)
	ok, _ := m.Allow(ctx, "k", 1, late)
	assert.True(t, ok)
	assert.Equal(t, start.Add(4*time.Hour), m.ResetAt(late))

	ok, _ = m.Allow(ctx, "k", 1, late.Add(time.Minute))
	assert.False(t, ok)
}

func TestMemoryRemainingNeverNegative(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)
	now := time.Unix(0, 0)

	for i := 0; i < 5; i++ {
		_, _ = m.Allow(ctx, "k", 2, now)
	}
	rem, err := m.Remaining(ctx, "k", 2, now)
	require.NoError(t, err)
	assert.Equal(t, 0, rem)
}

func TestMemoryConcurrentAllow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	now := time.Unix(1000, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Allow(ctx, "k", 20, now); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, allowed)
}

func TestRedisWindowKeys(t *testing.T) {
	r := NewRedis(nil, "quintet:rl", time.Hour)
	now := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), r.ResetAt(now).UTC())
	assert.Equal(t, r.windowKey("1.2.3.4", now), r.windowKey("1.2.3.4", now.Add(44*time.Minute)))
	assert.NotEqual(t, r.windowKey("1.2.3.4", now), r.windowKey("1.2.3.4", now.Add(45*time.Minute)))
	assert.Contains(t, r.windowKey("1.2.3.4", now), "quintet:rl:1.2.3.4:")
}

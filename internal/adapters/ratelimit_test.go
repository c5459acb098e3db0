package adapters

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_ReserveSpacing(t *testing.T) {
	rl := NewRateLimiter(12 * time.Second)
	t0 := time.Now()

	g1 := rl.Reserve(t0)
	g2 := rl.Reserve(t0)
	g3 := rl.Reserve(t0)

	assert.WithinDuration(t, t0, g1, time.Millisecond)
	assert.WithinDuration(t, t0.Add(12*time.Second), g2, time.Millisecond)
	assert.WithinDuration(t, t0.Add(24*time.Second), g3, time.Millisecond)
}

func TestRateLimiter_NoBurstAfterIdle(t *testing.T) {
	rl := NewRateLimiter(time.Second)
	t0 := time.Now()

	rl.Reserve(t0)
	// a long idle period earns at most one immediate grant
	later := t0.Add(time.Hour)
	assert.WithinDuration(t, later, rl.Reserve(later), time.Millisecond)
	assert.WithinDuration(t, later.Add(time.Second), rl.Reserve(later), time.Millisecond)
}

func TestRateLimiter_AcquireConcurrent(t *testing.T) {
	const interval = 40 * time.Millisecond
	rl := NewRateLimiter(interval)

	var mu sync.Mutex
	var grants []time.Time
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rl.Acquire(context.Background()))
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, grants, 4)
	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	for i, g := range grants {
		// scheduler lag only ever delays a grant
		assert.GreaterOrEqual(t, g.Sub(start), time.Duration(i)*interval-5*time.Millisecond)
	}
}

func TestRateLimiter_AcquireCancelled(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	require.NoError(t, rl.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Acquire(ctx))
}

func TestRateLimiter_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultRateLimitInterval, NewRateLimiter(0).Interval())
}

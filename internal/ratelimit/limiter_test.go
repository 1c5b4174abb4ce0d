package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *MemoryStore, *time.Time) {
	t.Helper()

	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return current }

	limiter := NewLimiter(store, ScopeInboundReply, max, window)
	limiter.now = store.now

	return limiter, store, &current
}

func TestAllowUpToCap(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, 10, time.Hour)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := limiter.Allow(ctx, "5583998530445")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d should pass", i+1)
		assert.Equal(t, 10-i-1, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "5583998530445")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Equal(t, 3600, d.RetryAfterSeconds())
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	limiter, _, current := newTestLimiter(t, 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
	}

	*current = current.Add(time.Hour + time.Second)

	d, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "fresh window should admit the call")
	assert.Equal(t, 1, d.Remaining)
}

func TestRetryAfterShrinksAsWindowAges(t *testing.T) {
	limiter, _, current := newTestLimiter(t, 1, time.Hour)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)

	*current = current.Add(15 * time.Minute)

	d, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*60, d.RetryAfterSeconds())
}

func TestKeysAreIndependentAcrossScopes(t *testing.T) {
	store := NewMemoryStore()
	inbound := NewLimiter(store, ScopeInboundReply, 1, time.Hour)
	outbound := NewLimiter(store, ScopeOutboundSend, 1, time.Hour)
	ctx := context.Background()

	d, err := inbound.Allow(ctx, "same-identity")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = outbound.Allow(ctx, "same-identity")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "scopes must not share counters")

	d, err = inbound.Allow(ctx, "same-identity")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestConcurrentHitsNeverExceedCap(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, 10, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := limiter.Allow(ctx, "contended")
			require.NoError(t, err)
			allowed <- d.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	passed := 0
	for ok := range allowed {
		if ok {
			passed++
		}
	}
	assert.Equal(t, 10, passed)
}

func TestMemoryStoreSweep(t *testing.T) {
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return current }

	ctx := context.Background()
	_, _, err := store.Hit(ctx, "a", time.Hour)
	require.NoError(t, err)
	_, _, err = store.Hit(ctx, "b", time.Minute)
	require.NoError(t, err)

	current = current.Add(30 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

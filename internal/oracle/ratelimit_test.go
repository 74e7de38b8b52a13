package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstUpToCapacity(t *testing.T) {
	rl := NewRateLimiter(10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.tryAcquire(), "token %d within capacity", i)
	}
	assert.False(t, rl.tryAcquire(), "bucket is exhausted after the burst")
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	// 6000 per minute refills 100 per second, so a drained bucket recovers
	// a token within a few milliseconds.
	rl := NewRateLimiter(6000)
	for rl.tryAcquire() {
	}

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.tryAcquire())
}

func TestRateLimiterWaitHonorsCancellation(t *testing.T) {
	rl := NewRateLimiter(1)
	require.True(t, rl.tryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterDefaultsCapacity(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.True(t, rl.tryAcquire())
}

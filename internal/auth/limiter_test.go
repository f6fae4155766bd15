package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(LimiterPolicy{MaxAttempts: 2, Window: time.Minute, Block: 10 * time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "555-123-4567")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, wait, err := l.Allow(ctx, "555-123-4567")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Minute, wait)

	ok, _, _ = l.Allow(ctx, "other")
	assert.True(t, ok, "limits are per identifier")

	now = now.Add(11 * time.Minute)
	ok, _, _ = l.Allow(ctx, "555-123-4567")
	assert.True(t, ok, "block expires")
}

func TestMemoryLimiter_ResetClearsAttempts(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(LimiterPolicy{MaxAttempts: 1, Window: time.Minute, Block: time.Minute})

	ok, _, _ := l.Allow(ctx, "admin")
	assert.True(t, ok)
	require.NoError(t, l.Reset(ctx, "admin"))
	ok, _, _ = l.Allow(ctx, "admin")
	assert.True(t, ok)
}

func TestMemoryLimiter_WindowRestartsCount(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(LimiterPolicy{MaxAttempts: 1, Window: time.Minute, Block: time.Hour})
	now := time.Now()
	l.now = func() time.Time { return now }

	ok, _, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	now = now.Add(2 * time.Minute)
	ok, _, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

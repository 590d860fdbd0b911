package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRateLimiterSlidingWindows(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(2, 3, 0, true)
	rl.now = clock.now

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow(), "third launch in the same minute")

	clock.t = clock.t.Add(61 * time.Second)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow(), "hourly budget spent")

	stats := rl.GetStats()
	assert.Equal(t, 1, stats.RunsLastMinute)
	assert.Equal(t, 3, stats.RunsLastHour)
	assert.Equal(t, 0, stats.RemainingThisHour)
	assert.Equal(t, -1, stats.RemainingThisDay)

	clock.t = clock.t.Add(time.Hour)
	assert.True(t, rl.Allow())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1, false)
	for i := 0; i < 10; i++ {
		require.True(t, rl.Allow())
	}
	assert.False(t, rl.GetStats().Enabled)
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0, true)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
	rl.Reset()
	assert.True(t, rl.Allow())
}

func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	k := NewKeyedLimiter(1, 0, 0, true)

	assert.True(t, k.Allow("compass"))
	assert.False(t, k.Allow("compass"))
	assert.True(t, k.Allow("walkscore"), "another job kind keeps its own budget")

	stats := k.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "compass", stats[0].Key)
	assert.Equal(t, 1, stats[0].RunsLastMinute)
	assert.Equal(t, "walkscore", stats[1].Key)
}

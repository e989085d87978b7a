package api

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"workmarket/internal/config"
)

func TestRateLimiter(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		l := newRateLimiter(&config.APIConfig{})
		for i := 0; i < 100; i++ {
			assert.True(t, l.allow("k"))
		}
		assert.Equal(t, 0, l.size())
	})

	t.Run("BurstPerKey", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		l := newRateLimiter(&config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 2}})
		l.now = func() time.Time { return now }

		assert.True(t, l.allow("a"))
		assert.True(t, l.allow("a"))
		assert.False(t, l.allow("a"))
		assert.True(t, l.allow("b"))

		now = now.Add(time.Second)
		assert.True(t, l.allow("a"))
	})

	t.Run("SweepsIdleBuckets", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		l := newRateLimiter(&config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 10}})
		l.now = func() time.Time { return now }

		for i := 0; i < limiterSweepMin; i++ {
			l.allow(fmt.Sprintf("client-%d", i))
		}
		assert.Equal(t, limiterSweepMin, l.size())

		now = now.Add(limiterIdleTTL + time.Minute)
		l.allow("fresh")
		assert.Equal(t, 1, l.size())
	})
}

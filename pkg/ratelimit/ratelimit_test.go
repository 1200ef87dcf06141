package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadimbarashkov/shortlink/pkg/testcontainer"
)

func TestLimiter_Allow(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testcontainer.Redis(t)})
	t.Cleanup(func() {
		client.Close()
	})

	ctx := context.Background()
	l := New(client, 3, time.Minute)

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")

		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 3-i, res.Remaining)
		assert.LessOrEqual(t, res.ResetIn, time.Minute)
	}

	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	res, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "keys are limited independently")
}

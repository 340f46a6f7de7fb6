package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowCheck(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := SlidingWindow{Client: client, Prefix: "test:", Window: 2 * time.Second, Max: 2}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		d, err := limiter.Check(ctx, "token:c-1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.Equal(t, 2-(i+1), d.Remaining)
	}

	d, err := limiter.Check(ctx, "token:c-1")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.True(t, d.Reset.After(time.Now()))

	other, err := limiter.Check(ctx, "token:c-2")
	require.NoError(t, err)
	require.True(t, other.Allowed, "keys are counted separately")
}

func TestSlidingWindowDisabled(t *testing.T) {
	d, err := SlidingWindow{}.Check(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

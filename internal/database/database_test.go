package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-review/internal/config"
)

func TestPingWithRetry(t *testing.T) {
	log := zerolog.Nop()

	t.Run("SucceedsAfterFailures", func(t *testing.T) {
		calls := 0
		err := pingWithRetry(context.Background(), log, "test", 4, time.Millisecond, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("GivesUp", func(t *testing.T) {
		calls := 0
		refused := errors.New("connection refused")
		err := pingWithRetry(context.Background(), log, "test", 3, time.Millisecond, func(context.Context) error {
			calls++
			return refused
		})
		require.ErrorIs(t, err, refused)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("StopsOnCancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := pingWithRetry(ctx, log, "test", 10, time.Hour, func(context.Context) error {
			calls++
			cancel()
			return errors.New("down")
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), &config.Config{RedisURL: "redis://" + mr.Addr() + "/0"}, zerolog.Nop())
	require.NoError(t, err)
	defer rdb.Close()

	assert.Equal(t, 20, rdb.Options().PoolSize)
	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), &config.Config{RedisURL: "not-a-url"}, zerolog.Nop())
	require.Error(t, err)
}

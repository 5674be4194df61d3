package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/config"
)

// NewRedisClient connects to the cache and job-queue Redis.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	// Workers hold a connection in BLPop, leave room for request traffic.
	if opt.PoolSize == 0 {
		opt.PoolSize = 20
	}

	rdb := redis.NewClient(opt)

	ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	if err := pingWithRetry(ctx, log, "redis", connectAttempts, connectBackoff, ping); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Int("pool_size", opt.PoolSize).
		Msg("Redis connected")

	return rdb, nil
}

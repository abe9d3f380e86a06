package db

import (
	"context"
	"fmt"
	"net"

	"go-auth-api/config"
	"go-auth-api/logger"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates a client for the configured Redis server and pings it.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	redisAddr := net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to ping Redis")
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Log.WithField("address", redisAddr).Info("Redis connection established successfully")
	return rdb, nil
}

// Package redisclient establishes the shared Redis connection used by the
// character document store, the list cache, and the task state store.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// Connect parses a Redis URL, tunes the pool, and verifies connectivity
// with a ping so a misconfigured address fails at startup.
func Connect(ctx context.Context, redisURL string, logger *zap.Logger) (*redis.Client, error) {
	options, parseErr := redis.ParseURL(redisURL)
	if parseErr != nil {
		return nil, fmt.Errorf("redis.parse_url: %w", parseErr)
	}

	options.PoolSize = 10
	options.MinIdleConns = 2
	options.MaxIdleConns = 5
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)
	if pingErr := Ping(ctx, client); pingErr != nil {
		_ = client.Close()
		return nil, pingErr
	}

	logger.Info("redis client connected",
		zap.String("addr", options.Addr),
		zap.Int("pool_size", options.PoolSize))
	return client, nil
}

// Ping reports whether the client can reach the server.
func Ping(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		return fmt.Errorf("redis.ping: %w", pingErr)
	}
	return nil
}

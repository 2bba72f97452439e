package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 3
	pingTimeout     = 5 * time.Second
)

// Options configures the shared Redis client. The same client backs the
// analytics cache and the asynq queue.
type Options struct {
	Addr     string
	Password string
	DB       int
	// PoolSize 0 keeps the go-redis default.
	PoolSize int
}

// ConnectRedis creates a client and waits for the server to answer a PING,
// retrying briefly so the service can start alongside a Redis container.
func ConnectRedis(opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  pingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			logger.L().WithField("addr", opts.Addr).Info("Connected to Redis")
			return rdb, nil
		}
		logger.L().WithError(err).WithField("attempt", attempt).Warn("Redis ping failed")
		if attempt < connectAttempts {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
}

// DisconnectRedis closes the client; nil is a no-op.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	logger.L().Info("Redis connection closed")
	return nil
}

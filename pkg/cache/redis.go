package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

const (
	connectTimeout = 5 * time.Second
	ioTimeout      = 2 * time.Second
)

// ErrDisabled is returned by health checks when Redis is not configured.
var ErrDisabled = errors.New("redis cache disabled")

// NewRedis connects the snapshot cache client. It returns nil, nil when Redis is
// disabled in configuration and an error when the server cannot be reached.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

// HealthCheck adapts client to a readiness check.
func HealthCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrDisabled
		}
		return client.Ping(ctx).Err()
	}
}

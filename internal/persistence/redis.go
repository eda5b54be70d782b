package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskops/helpdesk-admin/internal/config"
)

// Redis wraps the go-redis client used for slice event fan-out.
type Redis struct {
	Client    *redis.Client
	available bool
}

// NewRedis connects to Redis; an unreachable server leaves the wrapper in a
// degraded state where Available reports false.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	r := &Redis{Client: client}
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis; event fan-out disabled", zap.Error(err))
	} else {
		r.available = true
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}
	return r
}

// Available reports whether the initial ping succeeded.
func (r *Redis) Available() bool {
	return r != nil && r.Client != nil && r.available
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

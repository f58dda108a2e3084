package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobpulse-engine/internal/logging"
)

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("events: redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("events: redis ping failed: %w", err)
	}

	return rdb, nil
}

// RedisMirror republishes events on a Redis pub/sub channel so other local
// tools can follow tracker changes. Failures are logged, never returned.
type RedisMirror struct {
	rdb     *redis.Client
	channel string
	timeout time.Duration
	log     *logging.Logger
}

func NewRedisMirror(rdb *redis.Client, channel string, log *logging.Logger) *RedisMirror {
	return &RedisMirror{rdb: rdb, channel: channel, timeout: 2 * time.Second, log: log.Named("events")}
}

func (m *RedisMirror) Publish(evt string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.rdb.Publish(ctx, m.channel, evt).Err(); err != nil {
		m.log.Warn("redis publish failed", "channel", m.channel, "err", err)
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher forwards events as JSON onto a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher builds a publisher; a nil client yields a no-op publisher.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = "helpdesk-admin:events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Channel returns the configured channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish encodes the event and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

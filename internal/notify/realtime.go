package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/voc-service/internal/events"
)

// RealtimePublisher fans events out on a Redis pub/sub channel for SSE gateways.
type RealtimePublisher struct {
	client  *redis.Client
	channel string
}

// NewRealtimePublisher builds a publisher for channel.
func NewRealtimePublisher(client *redis.Client, channel string) *RealtimePublisher {
	return &RealtimePublisher{client: client, channel: channel}
}

// Publish sends the JSON encoded event.
func (p *RealtimePublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

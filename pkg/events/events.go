package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vexa-ai/bot-manager/pkg/log"
)

// Channel is the Redis pub/sub channel lifecycle events are published on.
// The bots share the same Redis, so consumers can watch launches and stops
// without polling the platform.
const Channel = "bot_manager:events"

// Event types
const (
	TypeBotLaunched = "bot.launched"
	TypeBotStopped  = "bot.stopped"
)

// Event is one bot lifecycle notification.
type Event struct {
	Type         string    `json:"type"`
	WorkloadID   string    `json:"workload_id,omitempty"`
	WorkloadName string    `json:"workload_name,omitempty"`
	ConnectionID string    `json:"connection_id,omitempty"`
	MeetingID    int       `json:"meeting_id,omitempty"`
	UserID       int       `json:"user_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher emits lifecycle events. Publishing is best-effort everywhere:
// a failed publish must never fail the operation that produced it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// RedisPublisher publishes events over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisPublisher connects a Redis client from a redis:// URL.
func NewRedisPublisher(url string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &RedisPublisher{
		client: redis.NewClient(opts),
		logger: log.WithComponent("events"),
	}, nil
}

// Publish marshals the event and publishes it on Channel.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug().Str("type", event.Type).Str("connection_id", event.ConnectionID).Msg("event published")
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher discards events. Used when no Redis is configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/battleground/internal/platform/timeouts"
	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel join events are published on.
const DefaultChannel = "battleground.events"

// Publisher delivers one outbox event.
type Publisher interface {
	Publish(ctx context.Context, event admission.OutboxEvent) error
}

// Envelope is the wire form of a published event.
type Envelope struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode renders the envelope of event.
func Encode(event admission.OutboxEvent) ([]byte, error) {
	if !json.Valid(event.Payload) {
		return nil, fmt.Errorf("event %s payload is not valid JSON", event.ID)
	}
	return json.Marshal(Envelope{ID: event.ID, Kind: event.Kind, Payload: event.Payload})
}

// RedisPublisher publishes envelopes with PUBLISH on one channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher builds a publisher on client. An empty channel selects
// DefaultChannel.
func NewRedisPublisher(client redis.UniversalClient, channel string) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// Channel returns the channel events are published on.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends event to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, event admission.OutboxEvent) error {
	body, err := Encode(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Publish)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}

// LogPublisher writes events to the log. It stands in for Redis when no
// broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher builds a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs event.
func (p *LogPublisher) Publish(_ context.Context, event admission.OutboxEvent) error {
	if !json.Valid(event.Payload) {
		return fmt.Errorf("event %s payload is not valid JSON", event.ID)
	}
	p.logger.Info("event published",
		zap.String("event_id", event.ID),
		zap.String("kind", event.Kind),
		zap.ByteString("payload", event.Payload),
	)
	return nil
}

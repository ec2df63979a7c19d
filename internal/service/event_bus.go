package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// EventBus fans tool movements out over Redis Pub/Sub so every server
// instance can push them to its live dashboard sockets.
type EventBus struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewEventBus creates a new EventBus.
func NewEventBus(rdb *redis.Client, log zerolog.Logger) *EventBus {
	return &EventBus{rdb: rdb, log: log.With().Str("component", "event_bus").Logger()}
}

// Publish sends ev to every subscriber. Failures are logged only; a lost
// live update never fails the movement that caused it.
func (b *EventBus) Publish(ctx context.Context, ev model.MovementEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Error().Err(err).Msg("marshal movement event")
		return
	}
	if err := b.rdb.Publish(ctx, config.CacheKey.MovementChannel(), payload).Err(); err != nil {
		b.log.Warn().Err(err).Str("issue_no", ev.IssueNo).Msg("publish movement event")
	}
}

// Subscribe returns a channel of raw event payloads. The subscription ends
// when ctx is done or the returned close function is called.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan string, func() error, error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.MovementChannel())
	// Wait for the confirmation so no event published afterwards is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, pubsub.Close, nil
}

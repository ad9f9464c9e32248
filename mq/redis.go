package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisEmitter publishes events as JSON on a pub/sub channel so every API
// process can deliver them to its own websocket clients.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	return &RedisEmitter{client: client, channel: channel}
}

func (e *RedisEmitter) Emit(ctx context.Context, content Index) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		eventsEmitted.WithLabelValues(content.Method, "error").Inc()
		return fmt.Errorf("publishing event: %w", err)
	}
	eventsEmitted.WithLabelValues(content.Method, "ok").Inc()
	return nil
}

// Subscribe forwards events from channel to handle until ctx is done.
// Undecodable payloads are logged and skipped.
func Subscribe(ctx context.Context, client *redis.Client, channel string, handle func(Index)) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", channel, err)
	}
	slog.Info("subscribed to recipe events", "channel", channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var content Index
			if err := json.Unmarshal([]byte(msg.Payload), &content); err != nil {
				slog.Warn("dropping malformed event", "channel", channel, "error", err)
				continue
			}
			handle(content)
		}
	}
}

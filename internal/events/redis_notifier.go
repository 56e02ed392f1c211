package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes emitted events on a Redis pub/sub channel so other
// processes (workers, websocket gateways) can react in near real time.
type RedisNotifier struct {
	R       redis.UniversalClient
	Channel string
}

var _ Notifier = (*RedisNotifier)(nil)

// Notify publishes the event as JSON.
func (n *RedisNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.R == nil {
		return errors.New("events: redis client not configured")
	}
	channel := n.Channel
	if channel == "" {
		channel = "events"
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.R.Publish(ctx, channel, raw).Err()
}

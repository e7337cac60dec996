package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher forwards bus events to a Redis pub/sub channel so that
// interested frontends (WebSocket gateways, dashboards) can follow engine
// cycles without polling.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, log *slog.Logger) *RedisPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &RedisPublisher{client: client, channel: channel, log: log}
}

// Run subscribes to the bus and forwards events until the context is
// canceled or the bus closes. Publish failures are logged and skipped; a
// flaky Redis must not affect the engine loops.
func (p *RedisPublisher) Run(ctx context.Context, bus *Bus) {
	events, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				p.log.Error("Failed to marshal broadcast event", "error", err)
				continue
			}
			if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
				p.log.Warn("Failed to publish broadcast event", "channel", p.channel, "error", err)
			}
		}
	}
}

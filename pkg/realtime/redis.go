package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/metrics"
)

// DefaultChannel is the Redis pub/sub channel changes travel on.
const DefaultChannel = "foodle:changes"

// RedisBroker fans changes out through Redis pub/sub so every server
// instance delivers them to its own local subscribers. Publish only sends to
// Redis; local delivery happens when the message comes back in Run.
type RedisBroker struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
}

func NewRedisBroker(rdb *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{rdb: rdb, hub: hub, channel: DefaultChannel}
}

func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("realtime: encode change: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("realtime: publish %s: %w", c.Table, err)
	}
	metrics.ChangesPublished.WithLabelValues(c.Table, string(c.Event)).Inc()
	return nil
}

func (b *RedisBroker) Subscribe(f Filter) *Subscription { return b.hub.Subscribe(f) }

// Run relays the channel into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.rdb.Subscribe(ctx, b.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: subscribe %s: %w", b.channel, err)
	}
	logger.Info("realtime: relaying redis changes", "channel", b.channel)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				logger.Warn("realtime: dropping malformed change", "error", err)
				continue
			}
			b.hub.deliver(c)
		}
	}
}

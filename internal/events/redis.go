package events

import (
	"context"
	"encoding/json"
	"strings"

	"rewards_backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "events:"

// RedisBus fans events out through Redis pub/sub so every instance delivers
// them to its local subscribers. When Redis is unreachable it falls back to
// local delivery.
type RedisBus struct {
	rdb   *redis.Client
	local *LocalBus
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb, local: NewLocalBus()}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, channelPrefix+string(ev.Kind), data).Err(); err != nil {
		logger.Warn("redis publish failed, delivering locally", "kind", ev.Kind, "error", err)
		b.local.deliver(ev)
	}
	return nil
}

func (b *RedisBus) Subscribe(kinds ...Kind) (<-chan Event, func()) {
	return b.local.Subscribe(kinds...)
}

// Run relays Redis messages to local subscribers until ctx is done.
func (b *RedisBus) Run(ctx context.Context) {
	sub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("bad event payload", "channel", msg.Channel, "error", err)
				continue
			}
			if ev.Kind == "" {
				ev.Kind = Kind(strings.TrimPrefix(msg.Channel, channelPrefix))
			}
			b.local.deliver(ev)
		}
	}
}

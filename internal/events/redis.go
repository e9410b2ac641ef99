package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRelay carries events between API instances over a Redis pub/sub
// channel. Every instance publishes to the channel and forwards what it
// receives to its local websocket hub, so clients see changes made on any
// instance.
type RedisRelay struct {
	rdb        *redis.Client
	channel    string
	retryDelay time.Duration

	// subscribe runs one subscription until it ends; replaced in tests.
	subscribe func(ctx context.Context, dst Publisher) error
}

const relayRetryDelay = 2 * time.Second

func NewRedisRelay(rdb *redis.Client, channel string) *RedisRelay {
	r := &RedisRelay{rdb: rdb, channel: channel, retryDelay: relayRetryDelay}
	r.subscribe = r.subscribeOnce
	return r
}

func (r *RedisRelay) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.rdb.Publish(ctx, r.channel, b).Err()
}

// Run subscribes to the channel and forwards events to dst until ctx is
// canceled. A failed or dropped subscription is retried after retryDelay.
func (r *RedisRelay) Run(ctx context.Context, dst Publisher) error {
	for {
		err := r.subscribe(ctx, dst)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("WARN: redis relay: %v, retrying in %s", err, r.retryDelay)
		} else {
			log.Printf("WARN: redis relay: subscription closed, retrying in %s", r.retryDelay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.retryDelay):
		}
	}
}

func (r *RedisRelay) subscribeOnce(ctx context.Context, dst Publisher) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := relay(ctx, msg.Payload, dst); err != nil {
				log.Printf("WARN: redis relay: %v", err)
			}
		}
	}
}

func relay(ctx context.Context, payload string, dst Publisher) error {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return dst.Publish(ctx, e)
}

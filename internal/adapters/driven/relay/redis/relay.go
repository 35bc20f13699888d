// Package redis forwards progress events to a Redis pub/sub channel so that
// other processes can follow ingestions.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/logger"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "medrag:events"

const publishTimeout = 5 * time.Second

// publisher is the subset of the redis client the relay uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// Relay publishes each event as JSON on one channel.
type Relay struct {
	client  publisher
	channel string
}

// New connects to Redis. url is either a redis:// URL or host:port.
func New(ctx context.Context, url, channel string) (*Relay, error) {
	var opts *redis.Options
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newRelay(client, channel), nil
}

func newRelay(client publisher, channel string) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{client: client, channel: channel}
}

// Channel returns the channel events are published on.
func (r *Relay) Channel() string {
	return r.channel
}

// Forward publishes one event.
func (r *Relay) Forward(ctx context.Context, event domain.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event %d: %w", event.Seq, err)
	}
	return nil
}

// Run forwards events until the channel closes or ctx is done.
// Publish failures are logged and the event is skipped.
func (r *Relay) Run(ctx context.Context, events <-chan domain.ProgressEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := r.Forward(ctx, e); err != nil {
				logger.Warn("Event relay: %v", err)
			}
		}
	}
}

// Close closes the Redis client.
func (r *Relay) Close() error {
	return r.client.Close()
}

// Package redisbus relays change events between server processes over Redis pub/sub.
package redisbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/app/notification"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "19queue:events"

// Bus publishes events to a Redis channel and delivers events published by
// other processes. Every bus has a random origin id so a process can ignore
// its own messages.
type Bus struct {
	client  *redis.Client
	channel string
	origin  string
}

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// New connects to Redis and pings it.
func New(ctx context.Context, cfg Config) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr)
	}
	return NewWithClient(client, cfg.Channel), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, channel string) *Bus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Bus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// Origin returns the id stamped on events this bus publishes.
func (b *Bus) Origin() string {
	return b.origin
}

// Publish implements notification.Publisher. Failures are logged and dropped.
func (b *Bus) Publish(ctx context.Context, ev notification.Event) {
	ev.Origin = b.origin
	// the receiving process assigns its own sequence number
	ev.SequenceNo = 0
	data, err := json.Marshal(ev)
	if err != nil {
		zlog.Warn().Msgf("Failed to encode event: type=%s err=%v", ev.Type, err)
		return
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		zlog.Warn().Msgf("Failed to publish event: type=%s channel=%s err=%v", ev.Type, b.channel, err)
	}
}

// Listen subscribes to the channel and calls handler for every event that
// came from another process. The subscription is active when Listen returns.
// The returned stop function unsubscribes and waits for the handler loop.
func (b *Bus) Listen(ctx context.Context, handler func(notification.Event)) (func() error, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrapf(err, "failed to subscribe to %s", b.channel)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range sub.Channel() {
			var ev notification.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				zlog.Warn().Msgf("Ignoring malformed event: channel=%s err=%v", msg.Channel, err)
				continue
			}
			if ev.Origin == b.origin {
				continue
			}
			handler(ev)
		}
	}()

	zlog.Info().Msgf("Listening for remote events: channel=%s origin=%s", b.channel, b.origin)

	var once sync.Once
	var closeErr error
	return func() error {
		once.Do(func() {
			closeErr = sub.Close()
			wg.Wait()
		})
		return closeErr
	}, nil
}

// Close closes the Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}

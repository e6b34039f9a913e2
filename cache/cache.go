// Package cache is the read-cache and pub/sub layer. Redis backs it when an
// address is configured; otherwise an in-process store does, which is only
// coherent within a single server.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is the read-cache surface used by the engagement, ranking and catalog
// layers. A miss is ErrMiss from Get and an empty map from HGetAll; callers
// treat any error as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// HSet writes all fields of a hash and (re)sets its TTL.
	HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations. Subscriptions end when
// the returned cancel func is called or ctx is done; the channel is closed then.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// Store is a Cache that also carries pub/sub traffic.
type Store interface {
	Cache
	PubSub
	Close() error
}

// Config selects and tunes the backend.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// SweepInterval is how often the in-process store drops expired keys.
	SweepInterval time.Duration
	// SubscriberBuffer is the per-subscription channel size.
	SubscriberBuffer int
}

const (
	defaultSweepInterval    = 30 * time.Second
	defaultSubscriberBuffer = 256
)

// Open returns a Redis store when cfg.RedisAddr is set and an in-process
// store otherwise.
func Open(cfg Config) (Store, error) {
	if cfg.RedisAddr == "" {
		return NewMemory(cfg), nil
	}
	r, err := OpenRedis(cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func subscriberBuffer(cfg Config) int {
	if cfg.SubscriberBuffer <= 0 {
		return defaultSubscriberBuffer
	}
	return cfg.SubscriberBuffer
}

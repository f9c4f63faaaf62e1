// Package dedup drops webhook deliveries that were already processed.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces message ids in Redis.
const KeyPrefix = "wa:msg:"

// Deduper remembers message ids.
type Deduper interface {
	// FirstSeen marks id as seen and reports whether it was new.
	FirstSeen(ctx context.Context, id string) (bool, error)
	// Release forgets id so a redelivery is processed again.
	Release(ctx context.Context, id string) error
}

// RedisDeduper keeps seen ids in Redis with a TTL.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper connects to redisURL and checks the connection.
func NewRedisDeduper(ctx context.Context, redisURL string, ttl time.Duration) (*RedisDeduper, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisDeduperFromClient(client, ttl), nil
}

// NewRedisDeduperFromClient wraps an existing client.
func NewRedisDeduperFromClient(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, KeyPrefix+id, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message %s: %w", id, err)
	}
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, KeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to release message %s: %w", id, err)
	}
	return nil
}

// Ping checks Redis for readiness probes.
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the client.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}

// Nop treats every message as new. It is used when Redis is not configured.
type Nop struct{}

func (Nop) FirstSeen(context.Context, string) (bool, error) { return true, nil }
func (Nop) Release(context.Context, string) error           { return nil }

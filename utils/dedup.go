package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Deduper remembers provider event ids so every webhook is applied
// at-most-once.
type Deduper interface {
	// MarkSeen records the id and reports whether it was seen before.
	MarkSeen(ctx context.Context, id string) (bool, error)
	// Forget drops the id so a failed delivery can be retried.
	Forget(ctx context.Context, id string) error
}

// RedisDeduper implements Deduper with SETNX keys under a shared prefix.
type RedisDeduper struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{Client: client, TTL: DedupTTL}
}

func (d *RedisDeduper) key(id string) string {
	return DedupPrefix + id
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, id string) (bool, error) {
	set, err := d.Client.SetNX(ctx, d.key(id), 1, d.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check for %s failed: %w", id, err)
	}
	return !set, nil
}

func (d *RedisDeduper) Forget(ctx context.Context, id string) error {
	if err := d.Client.Del(ctx, d.key(id)).Err(); err != nil {
		return fmt.Errorf("dedup forget for %s failed: %w", id, err)
	}
	return nil
}

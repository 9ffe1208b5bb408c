package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for processed queue messages
	seenMessageKeyPrefix = "epp:msg:"

	defaultSeenTTL = 30 * 24 * time.Hour
)

// RedisDedupe shares processed-message state across instances, so two
// pollers never double-store the same queue message.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupe constructs a Redis-backed dedupe set. A zero ttl keeps
// entries for the default retention window.
func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	if ttl == 0 {
		ttl = defaultSeenTTL
	}
	return &RedisDedupe{client: client, ttl: ttl}
}

// Seen marks msgID as processed and reports whether it already was.
// SETNX makes the check-and-mark atomic.
func (d *RedisDedupe) Seen(ctx context.Context, msgID string) (bool, error) {
	if msgID == "" {
		return false, nil
	}
	fresh, err := d.client.SetNX(ctx, seenMessageKeyPrefix+msgID, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("check message seen: %w", err)
	}
	return !fresh, nil
}

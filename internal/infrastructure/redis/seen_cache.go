package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenCache is a best-effort recent-seen set of source event ids, used as
// a fast path in front of the ledger's authoritative dedup index. Entries
// expire after the configured TTL, so a miss proves nothing; only a hit is
// meaningful. Errors are surfaced so the caller can fall through to the
// store rather than fail the message.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSeenCache(client *redis.Client, ttl time.Duration) *SeenCache {
	return &SeenCache{client: client, ttl: ttl}
}

func (c *SeenCache) key(sourceEventID string) string {
	return fmt.Sprintf("activity:seen:%s", sourceEventID)
}

// Seen reports whether the source event id was marked within the TTL window.
func (c *SeenCache) Seen(ctx context.Context, sourceEventID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(sourceEventID)).Result()
	if err != nil {
		return false, fmt.Errorf("seen cache lookup: %w", err)
	}
	return n > 0, nil
}

// Mark records the source event id. SetNX keeps the first writer's TTL;
// redelivery within the window does not extend it.
func (c *SeenCache) Mark(ctx context.Context, sourceEventID string) error {
	if err := c.client.SetNX(ctx, c.key(sourceEventID), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("seen cache mark: %w", err)
	}
	return nil
}

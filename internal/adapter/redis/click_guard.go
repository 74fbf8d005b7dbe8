package redisguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClickGuard deduplicates click events with Redis SETNX. It is a
// fast-path in front of the database's clicked_at check, absorbing user
// double-taps without a transaction; the service stays correct when the
// guard is disabled or unavailable.
type ClickGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClickGuard connects to Redis at addr and verifies the connection
// with a 5 second ping.
func NewClickGuard(addr string, ttl time.Duration) (*ClickGuard, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &ClickGuard{client: client, ttl: ttl}, nil
}

func clickKey(impressionID string) string {
	return "sponsored:click:" + impressionID
}

// FirstClick reports whether this is the first sighting of the impression
// id within the guard's TTL window. SETNX returns true when the key was
// absent and is now set.
func (g *ClickGuard) FirstClick(ctx context.Context, impressionID string) (bool, error) {
	wasSet, err := g.client.SetNX(ctx, clickKey(impressionID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return wasSet, nil
}

// Forget drops a remembered impression id. Called when the database
// charge failed, so a retry within the TTL is not absorbed while nothing
// was actually recorded.
func (g *ClickGuard) Forget(ctx context.Context, impressionID string) error {
	if err := g.client.Del(ctx, clickKey(impressionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (g *ClickGuard) Close() error {
	return g.client.Close()
}

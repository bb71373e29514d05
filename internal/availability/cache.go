package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

// Cache is a read-through Redis cache of generated day availability.
// Correctness never depends on it: entries expire with the TTL and every
// slot or appointment mutation drops the affected keys.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a cache over the given Redis client.
func NewCache(redisClient *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: redisClient, ttl: ttl}
}

func (c *Cache) key(doctorID uuid.UUID, date schedule.DateKey) string {
	return fmt.Sprintf("availability:%s:%s", doctorID, date)
}

// Get returns the cached minutes for the doctor/date, or (nil, false) on a
// miss.
func (c *Cache) Get(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey) ([]int, bool, error) {
	data, err := c.redis.Get(ctx, c.key(doctorID, date)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("availability: cache get: %w", err)
	}
	var minutes []int
	if err := json.Unmarshal(data, &minutes); err != nil {
		return nil, false, fmt.Errorf("availability: cache decode: %w", err)
	}
	return minutes, true, nil
}

// Set stores the minutes for the doctor/date with the cache TTL.
func (c *Cache) Set(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey, minutes []int) error {
	data, err := json.Marshal(minutes)
	if err != nil {
		return fmt.Errorf("availability: cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(doctorID, date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("availability: cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached availability for one doctor/date.
func (c *Cache) Invalidate(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey) error {
	if err := c.redis.Del(ctx, c.key(doctorID, date)).Err(); err != nil {
		return fmt.Errorf("availability: cache invalidate: %w", err)
	}
	return nil
}

// InvalidateDoctor drops every cached date for the doctor. Used when a
// recurring slot changes and the affected dates are unbounded.
func (c *Cache) InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) error {
	pattern := fmt.Sprintf("availability:%s:*", doctorID)
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("availability: cache invalidate doctor: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("availability: cache scan: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"conectaplus/internal/model"
)

// SnapshotCache keeps the latest room snapshot in Redis so a room can be
// rehydrated quickly after the process restarts or the room was swept
// while nobody was connected. Mongo remains the durable authority.
type SnapshotCache interface {
	Set(ctx context.Context, code string, snap *model.RoomSnapshot) error
	Get(ctx context.Context, code string) (*model.RoomSnapshot, error)
	Delete(ctx context.Context, code string) error
}

type snapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache creates a Redis-backed snapshot cache.
func NewSnapshotCache(client *redis.Client) SnapshotCache {
	return &snapshotCache{
		client: client,
		ttl:    24 * time.Hour, // Stale sessions expire after 24h
	}
}

func (c *snapshotCache) key(code string) string {
	return fmt.Sprintf("room:snapshot:%s", code)
}

func (c *snapshotCache) Set(ctx context.Context, code string, snap *model.RoomSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(code), data, c.ttl).Err()
}

func (c *snapshotCache) Get(ctx context.Context, code string) (*model.RoomSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap model.RoomSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *snapshotCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}

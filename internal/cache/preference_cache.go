package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"tutorchat/internal/model"
)

// PreferenceCache stores per-workspace preferences in Redis so they survive
// a service restart.
type PreferenceCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewPreferenceCache(client *redisv9.Client, ttl time.Duration) *PreferenceCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &PreferenceCache{client: client, ttl: ttl}
}

func (c *PreferenceCache) Load(ctx context.Context, workspaceID string) (model.Preferences, bool, error) {
	raw, err := c.client.Get(ctx, preferenceKey(workspaceID)).Result()
	if err == redisv9.Nil {
		return model.Preferences{}, false, nil
	}
	if err != nil {
		return model.Preferences{}, false, fmt.Errorf("redis get preferences failed: %w", err)
	}

	var prefs model.Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return model.Preferences{}, false, fmt.Errorf("unmarshal preferences failed: %w", err)
	}
	return prefs, true, nil
}

func (c *PreferenceCache) Save(ctx context.Context, workspaceID string, prefs model.Preferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences failed: %w", err)
	}
	if err := c.client.Set(ctx, preferenceKey(workspaceID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set preferences failed: %w", err)
	}
	return nil
}

func preferenceKey(workspaceID string) string {
	return "tutor:prefs:" + workspaceID
}

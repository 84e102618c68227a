package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"tutorchat/internal/model"
)

// TranscriptCache keeps recent exchanges per identity and course. A dirty
// marker set on write keeps readers on the database until the persist
// worker has caught up.
type TranscriptCache struct {
	client         *redisv9.Client
	transcriptTTL  time.Duration
	dirtyMarkerTTL time.Duration
}

func NewTranscriptCache(client *redisv9.Client, transcriptTTL, dirtyMarkerTTL time.Duration) *TranscriptCache {
	if transcriptTTL <= 0 {
		transcriptTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &TranscriptCache{
		client:         client,
		transcriptTTL:  transcriptTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *TranscriptCache) GetTranscript(ctx context.Context, identity, courseID string) ([]model.Exchange, bool, error) {
	raw, err := c.client.Get(ctx, transcriptKey(identity, courseID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get transcript failed: %w", err)
	}

	var exchanges []model.Exchange
	if err := json.Unmarshal([]byte(raw), &exchanges); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached transcript failed: %w", err)
	}
	return exchanges, true, nil
}

func (c *TranscriptCache) SetTranscript(ctx context.Context, identity, courseID string, exchanges []model.Exchange) error {
	payload, err := json.Marshal(exchanges)
	if err != nil {
		return fmt.Errorf("marshal transcript cache failed: %w", err)
	}
	if err := c.client.Set(ctx, transcriptKey(identity, courseID), payload, c.transcriptTTL).Err(); err != nil {
		return fmt.Errorf("redis set transcript failed: %w", err)
	}
	return nil
}

func (c *TranscriptCache) DeleteTranscript(ctx context.Context, identity, courseID string) error {
	if err := c.client.Del(ctx, transcriptKey(identity, courseID)).Err(); err != nil {
		return fmt.Errorf("redis delete transcript failed: %w", err)
	}
	return nil
}

func (c *TranscriptCache) MarkDirty(ctx context.Context, identity, courseID string) error {
	if err := c.client.Set(ctx, dirtyKey(identity, courseID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *TranscriptCache) IsDirty(ctx context.Context, identity, courseID string) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey(identity, courseID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func transcriptKey(identity, courseID string) string {
	return fmt.Sprintf("tutor:transcript:%s:%s", identity, courseID)
}

func dirtyKey(identity, courseID string) string {
	return fmt.Sprintf("tutor:transcript:dirty:%s:%s", identity, courseID)
}

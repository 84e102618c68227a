package workspace

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"tutorchat/internal/model"
)

// PreferenceStore remembers identity and selected course per workspace.
type PreferenceStore interface {
	Load(ctx context.Context, workspaceID string) (model.Preferences, bool, error)
	Save(ctx context.Context, workspaceID string, prefs model.Preferences) error
}

// MemoryPreferences is the PreferenceStore used when Redis is disabled.
type MemoryPreferences struct {
	cache *gocache.Cache
}

func NewMemoryPreferences(ttl time.Duration) *MemoryPreferences {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &MemoryPreferences{cache: gocache.New(ttl, time.Hour)}
}

func (m *MemoryPreferences) Load(ctx context.Context, workspaceID string) (model.Preferences, bool, error) {
	if x, found := m.cache.Get(workspaceID); found {
		return x.(model.Preferences), true, nil
	}
	return model.Preferences{}, false, nil
}

func (m *MemoryPreferences) Save(ctx context.Context, workspaceID string, prefs model.Preferences) error {
	m.cache.Set(workspaceID, prefs, gocache.DefaultExpiration)
	return nil
}

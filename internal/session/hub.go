// Package session hydrates a workspace identity from an external auth
// provider's signed-in session.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"tutorchat/internal/model"
)

type Listener func(ctx context.Context, s model.AuthSession, active bool)

// Hub holds at most one active auth session and fans start/end events out
// to subscribers. Listeners run on the caller's goroutine, outside the lock.
// A session whose ExpiresAt has passed counts as ended.
type Hub struct {
	mu        sync.Mutex
	current   *model.AuthSession
	listeners map[int]Listener
	nextID    int
	now       func() time.Time
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[int]Listener), now: time.Now}
}

func (h *Hub) Current() (model.AuthSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil || h.expiredLocked(*h.current) {
		return model.AuthSession{}, false
	}
	return *h.current, true
}

// EndIfExpired ends the active session once its expiry has passed and
// reports whether it did.
func (h *Hub) EndIfExpired(ctx context.Context) bool {
	h.mu.Lock()
	if h.current == nil || !h.expiredLocked(*h.current) {
		h.mu.Unlock()
		return false
	}
	h.current = nil
	listeners := h.snapshotLocked()
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, model.AuthSession{}, false)
	}
	return true
}

func (h *Hub) expiredLocked(s model.AuthSession) bool {
	return !s.ExpiresAt.IsZero() && !h.now().Before(s.ExpiresAt)
}

func (h *Hub) Subscribe(fn func(ctx context.Context, s model.AuthSession, active bool)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
		})
	}
}

// Start replaces the active session. Sessions without an identity or
// already expired are ignored.
func (h *Hub) Start(ctx context.Context, s model.AuthSession) bool {
	s.Identity = strings.TrimSpace(s.Identity)
	if s.Identity == "" {
		return false
	}

	h.mu.Lock()
	if h.expiredLocked(s) {
		h.mu.Unlock()
		return false
	}
	h.current = &s
	listeners := h.snapshotLocked()
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, s, true)
	}
	return true
}

// End clears the active session, if any.
func (h *Hub) End(ctx context.Context) {
	h.mu.Lock()
	if h.current == nil {
		h.mu.Unlock()
		return
	}
	h.current = nil
	listeners := h.snapshotLocked()
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, model.AuthSession{}, false)
	}
}

func (h *Hub) snapshotLocked() []Listener {
	out := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		out = append(out, fn)
	}
	return out
}

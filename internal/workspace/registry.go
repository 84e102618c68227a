// Package workspace keeps one set of tutor flows per browser.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"tutorchat/internal/app"
	"tutorchat/internal/model"
	"tutorchat/internal/pkg/logger"
	"tutorchat/internal/session"
)

type Backend interface {
	app.CourseBackend
	app.AskBackend
	app.UploadBackend
}

// Workspace is the server-side state of one browser tab group.
type Workspace struct {
	ID       string
	Courses  *app.CourseCoordinator
	Chat     *app.ChatFlow
	Uploads  *app.UploadFlow
	Sessions *session.Hub

	init sync.Once
}

type Options struct {
	Backend     Backend
	Transcript  app.TranscriptSink
	Preferences PreferenceStore
	Logger      *logger.Logger

	DefaultIdentity string
	DefaultCourseID string
	IdleTTL         time.Duration
	MaxImageBytes   int64
}

type Registry struct {
	backend    Backend
	transcript app.TranscriptSink
	prefs      PreferenceStore
	logger     *logger.Logger
	defaults   model.Preferences
	maxImage   int64

	mu    sync.Mutex
	cache *gocache.Cache
}

func NewRegistry(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	prefs := opts.Preferences
	if prefs == nil {
		prefs = NewMemoryPreferences(0)
	}
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	r := &Registry{
		backend:    opts.Backend,
		transcript: opts.Transcript,
		prefs:      prefs,
		logger:     log.With("component", "workspace"),
		defaults:   model.Preferences{Identity: opts.DefaultIdentity, CourseID: opts.DefaultCourseID},
		maxImage:   opts.MaxImageBytes,
		cache:      gocache.New(ttl, 10*time.Minute),
	}
	r.cache.OnEvicted(func(id string, v interface{}) {
		if ws, ok := v.(*Workspace); ok {
			ws.Courses.Detach()
		}
	})
	return r
}

// Get returns the workspace for id, creating it (with a fresh id when id is
// not a valid uuid) if needed. The returned id is the one to hand back to
// the browser through ws.ID. A new workspace is initialised before Get
// returns; isNew reports whether one was created.
func (r *Registry) Get(ctx context.Context, id string) (ws *Workspace, isNew bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	ws, found := r.lookupLocked(id)
	r.mu.Unlock()

	// Preferences are loaded without holding the lock; a racing creator wins.
	var candidate *Workspace
	if !found {
		candidate = r.newWorkspace(ctx, id)
	}

	r.mu.Lock()
	if ws, found = r.lookupLocked(id); !found {
		if candidate == nil {
			candidate = r.newWorkspace(ctx, id)
		}
		ws = candidate
	}
	// Touch so the idle TTL slides.
	r.cache.SetDefault(id, ws)
	r.mu.Unlock()

	ws.init.Do(func() {
		ws.Courses.Init(ctx)
		ws.Courses.AttachProvider(ctx, ws.Sessions)
		r.logger.Debug("workspace created", "workspace_id", id)
	})
	return ws, !found
}

func (r *Registry) lookupLocked(id string) (*Workspace, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*Workspace), true
	}
	return nil, false
}

func (r *Registry) newWorkspace(ctx context.Context, id string) *Workspace {
	prefs := r.defaults
	if saved, ok, err := r.prefs.Load(ctx, id); err != nil {
		r.logger.Warn("load preferences failed", "workspace_id", id, "error", err)
	} else if ok {
		prefs = saved
	}

	return &Workspace{
		ID:       id,
		Courses:  app.NewCourseCoordinator(r.backend, r.logger, prefs.Identity, prefs.CourseID),
		Chat:     app.NewChatFlow(r.backend, r.transcript, r.logger),
		Uploads:  app.NewUploadFlow(r.backend, r.logger, app.WithMaxImageBytes(r.maxImage)),
		Sessions: session.NewHub(),
	}
}

// Remember persists the workspace's identity and selection. While an auth
// session owns the identity, the manual one is not overwritten.
func (r *Registry) Remember(ctx context.Context, ws *Workspace) {
	st := ws.Courses.Snapshot()
	prefs := model.Preferences{Identity: st.Identity, CourseID: st.SelectedCourseID}
	if st.IdentityLocked {
		if saved, ok, err := r.prefs.Load(ctx, ws.ID); err == nil && ok {
			prefs.Identity = saved.Identity
		} else {
			prefs.Identity = r.defaults.Identity
		}
	}
	if err := r.prefs.Save(ctx, ws.ID, prefs); err != nil {
		r.logger.Warn("save preferences failed", "workspace_id", ws.ID, "error", err)
	}
}

func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

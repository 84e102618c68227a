package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Probe checks one dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	probes    []Probe
	startedAt time.Time
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(startedAt time.Time, probes ...Probe) *HealthHandler {
	return &HealthHandler{probes: probes, startedAt: startedAt}
}

// Check runs every probe in parallel under one short deadline. Any failing
// probe turns the whole answer into a 503.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var (
		mu       sync.Mutex
		statuses = make(map[string]dependencyStatus, len(h.probes))
		healthy  = true
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range h.probes {
		p := p
		g.Go(func() error {
			st := dependencyStatus{OK: true}
			if err := p.Check(gctx); err != nil {
				st = dependencyStatus{OK: false, Message: err.Error()}
			}
			mu.Lock()
			statuses[p.Name] = st
			if !st.OK {
				healthy = false
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	httpStatus := http.StatusOK
	if !healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"ok":           healthy,
		"uptime":       time.Since(h.startedAt).Round(time.Second).String(),
		"dependencies": statuses,
	})
}

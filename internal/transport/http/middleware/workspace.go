package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/workspace"
)

const ContextWorkspaceKey = "workspace"

type WorkspaceOptions struct {
	CookieName string
	MaxAge     int
	Secure     bool
}

// Workspace resolves the caller's workspace from its cookie, issuing a new
// one when the cookie is missing or stale. An expired auth session is ended
// before the handler runs. Preferences are saved after any request that may
// have changed them.
func Workspace(registry *workspace.Registry, opts WorkspaceOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(opts.CookieName)
		ws, _ := registry.Get(c.Request.Context(), id)
		ws.Sessions.EndIfExpired(c.Request.Context())
		if ws.ID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, ws.ID, opts.MaxAge, "/", "", opts.Secure, true)
		}
		c.Set(ContextWorkspaceKey, ws)

		c.Next()

		if c.Request.Method != http.MethodGet {
			registry.Remember(c.Request.Context(), ws)
		}
	}
}

func GetWorkspace(c *gin.Context) (*workspace.Workspace, bool) {
	v, exists := c.Get(ContextWorkspaceKey)
	if !exists {
		return nil, false
	}
	ws, ok := v.(*workspace.Workspace)
	return ws, ok
}

func WorkspaceID(c *gin.Context) string {
	if ws, ok := GetWorkspace(c); ok {
		return ws.ID
	}
	return ""
}

package http

import (
	"context"

	"github.com/gin-gonic/gin"

	appsvc "tutorchat/internal/app"
	"tutorchat/internal/bootstrap"
	mysqlClient "tutorchat/internal/platform/mysql"
	"tutorchat/internal/transport/http/handler"
	"tutorchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery())
	if len(app.Config.CORS.AllowOrigins) > 0 {
		router.Use(middleware.CORS(app.Config.CORS.AllowOrigins))
	}

	features := handler.Features{
		AuthEnabled:       app.Verifier.Enabled(),
		TranscriptEnabled: app.Transcript != nil,
	}

	healthHandler := handler.NewHealthHandler(app.StartedAt, probes(app)...)
	router.StaticFile("/", "web/index.html")
	router.GET("/healthz", healthHandler.Check)

	stateHandler := handler.NewStateHandler(features)
	courseHandler := handler.NewCourseHandler(features)
	chatHandler := handler.NewChatHandler(app.Transcript, features)
	uploadHandler := handler.NewUploadHandler(features, max(app.Config.MaxImageBytes(), appsvc.DefaultMaxImageBytes, appsvc.MaxPDFBytes))
	sessionHandler := handler.NewSessionHandler(app.Verifier, features)

	api := router.Group("/api")
	api.Use(middleware.Workspace(app.Registry, middleware.WorkspaceOptions{
		CookieName: app.Config.Workspace.CookieName,
		MaxAge:     app.Config.Workspace.IdleTTLMinutes * 60,
		Secure:     app.Config.Workspace.CookieSecure,
	}))
	api.GET("/state", stateHandler.Get)
	api.PUT("/identity", courseHandler.SetIdentity)
	api.POST("/courses/refresh", courseHandler.Refresh)
	api.POST("/courses", courseHandler.Create)
	api.PUT("/selection", courseHandler.Select)
	api.POST("/ask", chatHandler.Ask)
	api.GET("/history", chatHandler.History)
	api.POST("/upload/:kind", uploadHandler.Upload)
	api.POST("/session", sessionHandler.Start)
	api.DELETE("/session", sessionHandler.End)

	return router
}

func probes(app *bootstrap.App) []handler.Probe {
	out := []handler.Probe{{Name: "backend", Check: app.Backend.Health}}
	if app.MySQL != nil {
		out = append(out, handler.Probe{Name: "mysql", Check: func(ctx context.Context) error {
			return mysqlClient.Ping(ctx, app.MySQL)
		}})
	}
	if app.Redis != nil {
		out = append(out, handler.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}})
	}
	if app.MQConn != nil {
		out = append(out, handler.Probe{Name: "rabbitmq", Check: func(ctx context.Context) error {
			if app.MQConn.IsClosed() {
				return errRabbitMQClosed
			}
			return nil
		}})
	}
	return out
}

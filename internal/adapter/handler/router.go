package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetsync-team/meetsync/internal/infrastructure/http/middleware"
	"github.com/meetsync-team/meetsync/internal/usecase/auth"
	"github.com/meetsync-team/meetsync/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	authHandler    *Auth
	syncHandler    *Sync
	meetingHandler *Meeting
	webhookHandler *Webhook
	oauthService   *auth.OAuthService
}

// NewRouter creates a new router with all handlers
func NewRouter(
	cfg *config.Config,
	authHandler *Auth,
	syncHandler *Sync,
	meetingHandler *Meeting,
	webhookHandler *Webhook,
	oauthService *auth.OAuthService,
) *Router {
	return &Router{
		cfg:            cfg,
		authHandler:    authHandler,
		syncHandler:    syncHandler,
		meetingHandler: meetingHandler,
		webhookHandler: webhookHandler,
		oauthService:   oauthService,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	v1 := e.Group("/v1")

	rt.setupAuthRoutes(v1)
	rt.setupSyncRoutes(v1)
	rt.setupMeetingRoutes(v1)
	rt.setupWebhookRoutes(v1)
}

// setupAuthRoutes configures authentication routes
func (rt *Router) setupAuthRoutes(g *echo.Group) {
	authGroup := g.Group("/auth")

	authGroup.GET("/google/login", rt.authHandler.GoogleLogin)
	authGroup.GET("/google/callback", rt.authHandler.GoogleCallback)
	authGroup.GET("/me", rt.authHandler.Me, middleware.EchoAuth(rt.oauthService))
}

// setupSyncRoutes configures sync engine routes
func (rt *Router) setupSyncRoutes(g *echo.Group) {
	syncGroup := g.Group("/sync", middleware.EchoAuth(rt.oauthService))

	syncGroup.POST("/trigger", rt.syncHandler.Trigger)
	syncGroup.GET("/status", rt.syncHandler.Status)
	syncGroup.POST("/activity", rt.syncHandler.Activity)
	syncGroup.POST("/feed", rt.syncHandler.ConnectFeed)
	syncGroup.POST("/watch", rt.syncHandler.SetupWatch)
	syncGroup.POST("/watch/renew", rt.syncHandler.RenewWatch)
	syncGroup.DELETE("/watch", rt.syncHandler.StopWatch)
}

// setupMeetingRoutes configures meeting routes
func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetingGroup := g.Group("/meetings", middleware.EchoAuth(rt.oauthService))

	meetingGroup.GET("", rt.meetingHandler.List)
}

// setupWebhookRoutes configures webhook receiver routes. The calendar
// provider authenticates via the channel token, not a JWT.
func (rt *Router) setupWebhookRoutes(g *echo.Group) {
	webhookGroup := g.Group("/webhooks")

	webhookGroup.POST("/calendar", rt.webhookHandler.Calendar)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}

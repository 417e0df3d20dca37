package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/haidang-dev/meeting-insight/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg     *config.Config
	webhook *BotWebhook
	worker  *Worker
	meeting *Meeting
	chat    *Chat
	graph   *Graph
	db      *gorm.DB
	redis   *redis.Client
}

// NewRouter creates a new router with all handlers
func NewRouter(
	cfg *config.Config,
	webhook *BotWebhook,
	worker *Worker,
	meeting *Meeting,
	chat *Chat,
	graph *Graph,
	db *gorm.DB,
	redisClient *redis.Client,
) *Router {
	return &Router{
		cfg:     cfg,
		webhook: webhook,
		worker:  worker,
		meeting: meeting,
		chat:    chat,
		graph:   graph,
		db:      db,
		redis:   redisClient,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	// Ingress from the bot platform. Signed with the webhook secret.
	e.POST("/webhooks/meeting-bot", rt.webhook.Handle)

	// Queue dispatch target. Signed with the dispatch secret, never exposed
	// through the public gateway.
	e.POST("/internal/queue/process-meeting", rt.worker.ProcessMeeting)

	api := e.Group("/api")

	meetings := api.Group("/meetings")
	meetings.GET("", rt.meeting.List)
	meetings.GET("/:id", rt.meeting.Get)
	meetings.GET("/:id/transcript", rt.meeting.Transcript)
	meetings.POST("/:id/action-items", rt.meeting.AddActionItem)
	meetings.DELETE("/:id/action-items/:itemId", rt.meeting.DeleteActionItem)
	meetings.POST("/:id/reprocess", rt.meeting.Reprocess)
	meetings.POST("/:id/chat", rt.chat.AskMeeting)

	api.POST("/chat", rt.chat.Ask)
	api.GET("/graph", rt.graph.Data)
}

// healthCheck reports service health including dependency reachability.
func (rt *Router) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}

	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	body := map[string]interface{}{
		"status": "ok",
		"checks": checks,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	return c.JSON(status, body)
}

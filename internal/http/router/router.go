package router

import (
	"github.com/gin-gonic/gin"

	"slackgpt.app/relay/internal/http/handler"
	"slackgpt.app/relay/internal/http/middleware"
	"slackgpt.app/relay/internal/service"
)

type RouterConfig struct {
	SigningSecret   string
	TraceHeaderName string
}

func SetupRoutes(router *gin.Engine, ingest service.EventIngestService, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	slackGroup := router.Group("/slack", middleware.SlackSignature(cfg.SigningSecret))
	SlackRouter(slackGroup,
		handler.NewSlackEventsHandler(ingest, cfg.TraceHeaderName),
		handler.NewSlackCommandsHandler(ingest, cfg.TraceHeaderName),
	)
}

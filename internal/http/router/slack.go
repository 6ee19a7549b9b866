package router

import (
	"github.com/gin-gonic/gin"

	"slackgpt.app/relay/internal/http/handler"
)

func SlackRouter(router *gin.RouterGroup, events *handler.SlackEventsHandler, commands *handler.SlackCommandsHandler) {
	router.POST("/events", events.Handle)
	router.POST("/commands", commands.Handle)
}

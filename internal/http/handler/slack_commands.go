package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"slackgpt.app/relay/internal/http/dto"
	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/service"
)

type SlackCommandsHandler struct {
	service     service.EventIngestService
	traceHeader string
}

func NewSlackCommandsHandler(service service.EventIngestService, traceHeader string) *SlackCommandsHandler {
	return &SlackCommandsHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

// Handle queues the command and acknowledges at once; the answer is posted
// ephemerally by the worker.
func (h *SlackCommandsHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	parsed, err := slack.SlashCommandParse(c.Request)
	if err != nil {
		slog.WarnContext(ctx, "invalid slash command", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slash command"})
		return
	}

	cmd := model.SlashCommand{
		Command:     parsed.Command,
		Text:        parsed.Text,
		UserID:      parsed.UserID,
		ChannelID:   parsed.ChannelID,
		ChannelName: parsed.ChannelName,
		ResponseURL: parsed.ResponseURL,
	}

	result, err := h.service.IngestCommand(ctx, cmd, traceID(c, h.traceHeader))
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slash command"})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest slash command", "error", err, "command", cmd.Command)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest command"})
		return
	}

	c.JSON(http.StatusOK, dto.Ack(result.Enqueued, result.Reason))
}

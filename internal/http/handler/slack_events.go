package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack/slackevents"

	"slackgpt.app/relay/internal/http/dto"
	"slackgpt.app/relay/internal/http/middleware"
	"slackgpt.app/relay/internal/service"
)

type SlackEventsHandler struct {
	service     service.EventIngestService
	traceHeader string
}

func NewSlackEventsHandler(service service.EventIngestService, traceHeader string) *SlackEventsHandler {
	return &SlackEventsHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

// innerEventType reads only the type of a callback's inner event.
type innerEventType struct {
	Type string `json:"type"`
}

// Handle answers the Events API endpoint. Requests reach it already signature
// checked. Redeliveries are acknowledged without queueing since the first
// delivery was already accepted.
func (h *SlackEventsHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		slog.WarnContext(ctx, "unparseable slack event", "error", err)
		c.JSON(http.StatusOK, dto.Ack(false, "unparseable_event"))
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		verification, ok := event.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url verification"})
			return
		}
		c.String(http.StatusOK, verification.Challenge)
		return

	case slackevents.CallbackEvent:
	default:
		slog.InfoContext(ctx, "slack event ignored", "type", event.Type)
		c.JSON(http.StatusOK, dto.Ack(false, "unhandled_envelope"))
		return
	}

	callback, ok := event.Data.(*slackevents.EventsAPICallbackEvent)
	if !ok || callback.InnerEvent == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event callback"})
		return
	}

	if retry := c.GetHeader(middleware.SlackRetryNumHeader); retry != "" {
		slog.InfoContext(ctx, "slack retry acknowledged",
			"event_id", callback.EventID,
			"retry_num", retry)
		c.JSON(http.StatusOK, dto.Ack(false, "retry"))
		return
	}

	var inner innerEventType
	if err := json.Unmarshal(*callback.InnerEvent, &inner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inner event"})
		return
	}

	result, err := h.service.Ingest(ctx, service.EventIngestParams{
		EventID:   callback.EventID,
		EventType: inner.Type,
		Event:     *callback.InnerEvent,
		TraceID:   traceID(c, h.traceHeader),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest slack event",
			"error", err,
			"event_id", callback.EventID,
			"event_type", inner.Type)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest event"})
		return
	}

	c.JSON(http.StatusOK, dto.Ack(result.Enqueued, result.Reason))
}

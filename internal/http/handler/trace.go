package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// traceID prefers the configured header and falls back to the active span.
func traceID(c *gin.Context, header string) *string {
	id := ""
	if header != "" {
		id = c.GetHeader(header)
	}
	if id == "" {
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.IsValid() {
			id = spanCtx.TraceID().String()
		}
	}
	if id == "" {
		return nil
	}
	return &id
}

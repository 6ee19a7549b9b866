package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
)

// Slack delivery headers.
const (
	SlackRetryNumHeader    = "X-Slack-Retry-Num"
	SlackRetryReasonHeader = "X-Slack-Retry-Reason"
)

// maxSlackBody caps request bodies read for signature checks.
const maxSlackBody = 1 << 20

// SlackSignature rejects requests whose X-Slack-Signature does not match the
// signing secret. The body is restored for the handler after verification.
func SlackSignature(signingSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		verifier, err := slack.NewSecretsVerifier(c.Request.Header, signingSecret)
		if err != nil {
			slog.WarnContext(ctx, "slack request rejected", "reason", "bad_headers", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid slack signature"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSlackBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		if _, err := verifier.Write(body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		if err := verifier.Ensure(); err != nil {
			slog.WarnContext(ctx, "slack request rejected", "reason", "signature_mismatch", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid slack signature"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

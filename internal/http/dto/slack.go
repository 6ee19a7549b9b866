package dto

// SlackAckResponse acknowledges an Events API delivery or slash command.
// Slack only looks at the status code; the body is for logs and tests.
type SlackAckResponse struct {
	Status   string `json:"status"`
	Enqueued bool   `json:"enqueued"`
	Reason   string `json:"reason,omitempty"`
}

func Ack(enqueued bool, reason string) SlackAckResponse {
	return SlackAckResponse{Status: "ok", Enqueued: enqueued, Reason: reason}
}

package model

import "time"

// SystemPrompt is a stored per-channel system prompt. Key has the form
// "<channelID>:<channelName>".
type SystemPrompt struct {
	Key       string
	Text      string
	UpdatedAt time.Time
}

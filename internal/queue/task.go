package queue

import "encoding/json"

type TaskType string

const (
	TaskTypeSlackMessage  TaskType = "slack_message"
	TaskTypeSlackReaction TaskType = "slack_reaction"
	TaskTypeSlashCommand  TaskType = "slash_command"
)

// Task is one unit of work for the reply worker. Payload holds the JSON of
// model.InboundMessage, model.Reaction or model.SlashCommand per TaskType.
type Task struct {
	TaskType TaskType
	Payload  json.RawMessage
	EventID  string
	TraceID  *string
	Attempt  int
}

package model

// ThreadReply is one message of a Slack thread as read back from the API.
// Timestamp is Slack's "ts" value and sorts lexicographically.
type ThreadReply struct {
	Timestamp string
	Text      string
	IsBot     bool
	UserID    string
}

// MessageHandle identifies a posted Slack message that can be updated.
type MessageHandle struct {
	ChannelID string
	Timestamp string
}

// ReplyTarget is where a streamed reply is published.
type ReplyTarget struct {
	ChannelID string
	ThreadTS  string
}

// Key identifies the target for per-target serialization.
func (t ReplyTarget) Key() string {
	return t.ChannelID + ":" + t.ThreadTS
}

type ChannelType string

const (
	ChannelTypeChannel ChannelType = "channel"
	ChannelTypeGroup   ChannelType = "group"
	ChannelTypeIM      ChannelType = "im"
	ChannelTypeMPIM    ChannelType = "mpim"
)

// File is an attachment on an inbound message.
type File struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Mimetype   string `json:"mimetype,omitempty"`
	URLPrivate string `json:"url_private,omitempty"`
}

// IsImage reports whether the file is an image by MIME type.
func (f File) IsImage() bool {
	return len(f.Mimetype) > 6 && f.Mimetype[:6] == "image/"
}

// InboundMessage is a normalized user message the bot may answer.
type InboundMessage struct {
	ChannelID   string      `json:"channel_id"`
	ChannelType ChannelType `json:"channel_type"`
	UserID      string      `json:"user_id"`
	Text        string      `json:"text"`
	Timestamp   string      `json:"ts"`
	ThreadTS    string      `json:"thread_ts,omitempty"` // empty when the message is not in a thread
	Files       []File      `json:"files,omitempty"`
	IsMention   bool        `json:"is_mention,omitempty"` // delivered as app_mention
}

// InThread reports whether the message was posted inside a thread.
func (m InboundMessage) InThread() bool {
	return m.ThreadTS != "" && m.ThreadTS != m.Timestamp
}

// ReplyTarget returns the thread the bot answers in. Top-level messages start
// a new thread under themselves.
func (m InboundMessage) ReplyTarget() ReplyTarget {
	ts := m.ThreadTS
	if ts == "" {
		ts = m.Timestamp
	}
	return ReplyTarget{ChannelID: m.ChannelID, ThreadTS: ts}
}

// Reaction is a reaction_added event on a message.
type Reaction struct {
	Name       string `json:"reaction"`
	UserID     string `json:"user_id"`
	ChannelID  string `json:"channel_id"`
	ItemTS     string `json:"item_ts"`
	ItemUserID string `json:"item_user_id,omitempty"`
	EventTS    string `json:"event_ts,omitempty"`
}

// SlashCommand is a parsed slash command invocation.
type SlashCommand struct {
	Command     string `json:"command"`
	Text        string `json:"text"`
	UserID      string `json:"user_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name,omitempty"`
	ResponseURL string `json:"response_url,omitempty"`
}

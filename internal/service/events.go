package service

import (
	"slackgpt.app/relay/internal/model"
)

// Slack event types the bot consumes.
const (
	EventTypeMessage       = "message"
	EventTypeAppMention    = "app_mention"
	EventTypeReactionAdded = "reaction_added"
)

// SlackEvent is the inner "event" object of an Events API callback, limited
// to the fields of message, app_mention and reaction_added events.
type SlackEvent struct {
	Type        string           `json:"type"`
	SubType     string           `json:"subtype,omitempty"`
	User        string           `json:"user,omitempty"`
	BotID       string           `json:"bot_id,omitempty"`
	Text        string           `json:"text,omitempty"`
	TimeStamp   string           `json:"ts,omitempty"`
	ThreadTS    string           `json:"thread_ts,omitempty"`
	Channel     string           `json:"channel,omitempty"`
	ChannelType string           `json:"channel_type,omitempty"`
	Files       []SlackEventFile `json:"files,omitempty"`

	Reaction string          `json:"reaction,omitempty"`
	ItemUser string          `json:"item_user,omitempty"`
	Item     *SlackEventItem `json:"item,omitempty"`
	EventTS  string          `json:"event_ts,omitempty"`
}

type SlackEventFile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Mimetype           string `json:"mimetype"`
	URLPrivate         string `json:"url_private"`
	URLPrivateDownload string `json:"url_private_download"`
}

type SlackEventItem struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// NormalizeMessage converts a message event. Edits, deletions, bot posts and
// every subtype other than file_share are dropped.
func NormalizeMessage(ev SlackEvent, botUserID string) (model.InboundMessage, bool) {
	switch ev.SubType {
	case "", "file_share":
	default:
		return model.InboundMessage{}, false
	}
	if ev.User == "" || ev.BotID != "" || ev.User == botUserID {
		return model.InboundMessage{}, false
	}

	return model.InboundMessage{
		ChannelID:   ev.Channel,
		ChannelType: model.ChannelType(ev.ChannelType),
		UserID:      ev.User,
		Text:        ev.Text,
		Timestamp:   ev.TimeStamp,
		ThreadTS:    ev.ThreadTS,
		Files:       toFiles(ev.Files),
	}, true
}

// NormalizeAppMention converts an app_mention event.
func NormalizeAppMention(ev SlackEvent, botUserID string) (model.InboundMessage, bool) {
	if ev.User == "" || ev.BotID != "" || ev.User == botUserID {
		return model.InboundMessage{}, false
	}

	channelType := model.ChannelType(ev.ChannelType)
	if channelType == "" {
		channelType = model.ChannelTypeChannel
	}
	return model.InboundMessage{
		ChannelID:   ev.Channel,
		ChannelType: channelType,
		UserID:      ev.User,
		Text:        ev.Text,
		Timestamp:   ev.TimeStamp,
		ThreadTS:    ev.ThreadTS,
		Files:       toFiles(ev.Files),
		IsMention:   true,
	}, true
}

// NormalizeReaction converts a reaction_added event on a message.
func NormalizeReaction(ev SlackEvent) (model.Reaction, bool) {
	if ev.Item == nil || ev.Item.Type != "message" || ev.Reaction == "" {
		return model.Reaction{}, false
	}
	return model.Reaction{
		Name:       ev.Reaction,
		UserID:     ev.User,
		ChannelID:  ev.Item.Channel,
		ItemTS:     ev.Item.TS,
		ItemUserID: ev.ItemUser,
		EventTS:    ev.EventTS,
	}, true
}

func toFiles(files []SlackEventFile) []model.File {
	if len(files) == 0 {
		return nil
	}
	out := make([]model.File, 0, len(files))
	for _, f := range files {
		url := f.URLPrivateDownload
		if url == "" {
			url = f.URLPrivate
		}
		out = append(out, model.File{
			ID:         f.ID,
			Name:       f.Name,
			Mimetype:   f.Mimetype,
			URLPrivate: url,
		})
	}
	return out
}

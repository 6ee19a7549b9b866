package brain

import (
	"sort"

	"slackgpt.app/relay/internal/model"
)

// DefaultImagePrompt is sent when a message carries images but no text.
const DefaultImagePrompt = "Describe the image(s)."

// WindowInput is everything BuildWindow needs to assemble a model context.
type WindowInput struct {
	SystemPrompt string
	History      []model.ThreadReply
	NewMessage   string
	Images       []string // data: or https URLs attached to the new message
	Budget       int
}

// WindowStats describes how a window was assembled.
type WindowStats struct {
	SystemTokens   int
	HistoryTokens  int
	NewTokens      int
	HistoryKept    int
	HistoryDropped int
}

func (s WindowStats) TotalTokens() int {
	return s.SystemTokens + s.HistoryTokens + s.NewTokens
}

// BuildWindow returns the ordered turns for the model: an optional leading
// system turn, the newest thread replies that fit the budget in chronological
// order, then the new message as the final user turn.
func BuildWindow(in WindowInput) []model.Turn {
	turns, _ := BuildWindowWithStats(in)
	return turns
}

// BuildWindowWithStats is BuildWindow that also reports token accounting.
//
// A system prompt larger than the budget is still emitted and leaves no room
// for history. The new message is never checked against the budget.
func BuildWindowWithStats(in WindowInput) ([]model.Turn, WindowStats) {
	var stats WindowStats
	turns := make([]model.Turn, 0, len(in.History)+2)

	remaining := in.Budget
	if in.SystemPrompt != "" {
		stats.SystemTokens = EstimateTokens(in.SystemPrompt)
		turns = append(turns, model.Turn{Role: model.RoleSystem, Content: in.SystemPrompt})
		remaining -= stats.SystemTokens
		if remaining < 0 {
			remaining = 0
		}
	}

	selected := selectHistory(in.History, remaining, &stats)
	for _, r := range selected {
		role := model.RoleUser
		if r.IsBot {
			role = model.RoleAssistant
		}
		turns = append(turns, model.Turn{Role: role, Content: r.Text})
	}

	if turn, ok := newMessageTurn(in.NewMessage, in.Images); ok {
		stats.NewTokens = EstimateTokens(turn.Content)
		turns = append(turns, turn)
	}

	return turns, stats
}

// selectHistory walks replies newest to oldest and keeps them while they fit
// the budget, stopping at the first one that does not. Empty replies are
// skipped without cost. The result is in chronological order.
func selectHistory(history []model.ThreadReply, budget int, stats *WindowStats) []model.ThreadReply {
	sorted := make([]model.ThreadReply, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	var newestFirst []model.ThreadReply
	total, nonEmpty := 0, 0
	full := false
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Text == "" {
			continue
		}
		nonEmpty++
		if full {
			continue
		}
		cost := EstimateTokens(sorted[i].Text)
		if total+cost > budget {
			full = true
			continue
		}
		total += cost
		newestFirst = append(newestFirst, sorted[i])
	}

	selected := make([]model.ThreadReply, len(newestFirst))
	for i, r := range newestFirst {
		selected[len(newestFirst)-1-i] = r
	}

	stats.HistoryTokens = total
	stats.HistoryKept = len(selected)
	stats.HistoryDropped = nonEmpty - len(selected)
	return selected
}

// newMessageTurn builds the final user turn. With images it becomes a
// multimodal turn, text first; image-only messages get DefaultImagePrompt.
func newMessageTurn(text string, imageURLs []string) (model.Turn, bool) {
	if len(imageURLs) == 0 {
		if text == "" {
			return model.Turn{}, false
		}
		return model.Turn{Role: model.RoleUser, Content: text}, true
	}

	if text == "" {
		text = DefaultImagePrompt
	}
	parts := make([]model.ContentPart, 0, len(imageURLs)+1)
	parts = append(parts, model.ContentPart{Type: model.ContentPartText, Text: text})
	for _, u := range imageURLs {
		parts = append(parts, model.ContentPart{Type: model.ContentPartImage, ImageURL: u})
	}
	return model.Turn{Role: model.RoleUser, Content: text, Parts: parts}, true
}

package model

// Role tags a Turn for the model.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ContentPartType string

const (
	ContentPartText  ContentPartType = "text"
	ContentPartImage ContentPartType = "image"
)

// ContentPart is one element of a multimodal Turn.
type ContentPart struct {
	Type     ContentPartType
	Text     string
	ImageURL string // data: or https URL
}

// Turn is one role-tagged unit of conversation context sent to the model.
// Parts, when non-empty, replaces Content for multimodal user turns.
type Turn struct {
	Role    Role
	Content string
	Parts   []ContentPart
}

// IsMultimodal reports whether the turn carries content parts.
func (t Turn) IsMultimodal() bool {
	return len(t.Parts) > 0
}

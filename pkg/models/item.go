package models

// Conversation item kinds. The set is closed; the normalizer maps unknown
// raw record types to no item at all.
const (
	ItemKindMessage   = "message"
	ItemKindReasoning = "reasoning"
	ItemKindTool      = "tool"
	ItemKindReview    = "review"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Review states.
const (
	ReviewStarted   = "started"
	ReviewCompleted = "completed"
)

// FileChange is one touched file reported by a tool item.
type FileChange struct {
	Path      string `json:"path"`
	Status    string `json:"status,omitempty"`
	Additions int64  `json:"additions,omitempty"`
	Deletions int64  `json:"deletions,omitempty"`
}

// ConversationItem is the canonical per-turn record rendered by clients.
// It is a flat variant struct discriminated by Kind; only the fields of the
// active variant are populated.
type ConversationItem struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// message
	Role string `json:"role,omitempty"`
	Text string `json:"text,omitempty"`

	// reasoning
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`

	// tool
	ToolType string       `json:"toolType,omitempty"`
	Title    string       `json:"title,omitempty"`
	Detail   string       `json:"detail,omitempty"`
	Status   string       `json:"status,omitempty"`
	Output   string       `json:"output,omitempty"`
	Changes  []FileChange `json:"changes,omitempty"`

	// review
	State string `json:"state,omitempty"`
}

// Signature is the equality identity used when de-duplicating optimistic
// overlay items against remote state. Only message items participate; other
// kinds are never optimistically inserted and return an empty signature.
func (it *ConversationItem) Signature() string {
	if it.Kind != ItemKindMessage {
		return ""
	}
	return it.Kind + ":" + it.Role + ":" + it.Text
}

// IsAssistantMessage reports whether the item is an assistant message.
// Counting these against a baseline is the proof the agent replied.
func (it *ConversationItem) IsAssistantMessage() bool {
	return it.Kind == ItemKindMessage && it.Role == RoleAssistant
}

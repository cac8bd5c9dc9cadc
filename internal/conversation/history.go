package conversation

import "vocaflow/internal/llm"

// MaxHistory bounds a conversation: the system prompt plus 20 turns.
const MaxHistory = 21

// History is the per-connection transcript sent to the chat providers.
// Entry 0 is always the system prompt.
type History struct {
	msgs []llm.Message
}

// NewHistory starts a transcript with the given system prompt
func NewHistory(system string) *History {
	return &History{msgs: []llm.Message{{Role: llm.RoleSystem, Content: system}}}
}

// Append adds a turn and drops the oldest turns past MaxHistory
func (h *History) Append(role llm.Role, content string) {
	h.msgs = append(h.msgs, llm.Message{Role: role, Content: content})
	if len(h.msgs) > MaxHistory {
		keep := h.msgs[len(h.msgs)-(MaxHistory-1):]
		trimmed := make([]llm.Message, 0, MaxHistory)
		trimmed = append(trimmed, h.msgs[0])
		h.msgs = append(trimmed, keep...)
	}
}

// Messages returns a copy of the transcript
func (h *History) Messages() []llm.Message {
	out := make([]llm.Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len returns the number of entries, the system prompt included
func (h *History) Len() int { return len(h.msgs) }

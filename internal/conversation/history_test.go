package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocaflow/internal/llm"
)

func TestHistoryKeepsSystemPrompt(t *testing.T) {
	h := NewHistory("system")
	h.Append(llm.RoleAssistant, "hola")
	for i := 0; i < 30; i++ {
		h.Append(llm.RoleUser, fmt.Sprintf("user %d", i))
		h.Append(llm.RoleAssistant, fmt.Sprintf("bot %d", i))
		require.LessOrEqual(t, h.Len(), MaxHistory)
	}

	msgs := h.Messages()
	require.Len(t, msgs, MaxHistory)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: "system"}, msgs[0])
	assert.Equal(t, "user 20", msgs[1].Content)
	assert.Equal(t, "bot 29", msgs[MaxHistory-1].Content)
}

func TestHistoryMessagesIsACopy(t *testing.T) {
	h := NewHistory("system")
	h.Append(llm.RoleUser, "hola")

	msgs := h.Messages()
	msgs[1].Content = "changed"

	assert.Equal(t, "hola", h.Messages()[1].Content)
}

// Package llm wraps the hosted chat models behind a single Provider
// interface.
package llm

import (
	"context"
)

// Provider is the core abstraction for chat completion.
type Provider interface {
	// Generate sends the conversation to the model and returns its reply.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt. It sets the tutor's role and constraints.
	System string

	// Messages is the conversation so far, oldest first. System entries in
	// Messages are folded into System by providers that need it.
	Messages []Message

	// MaxTokens is the maximum number of tokens in the reply.
	MaxTokens int

	// Temperature controls randomness. Zero leaves the provider default.
	Temperature float64

	// PresencePenalty and FrequencyPenalty are honoured by providers that
	// support them and ignored elsewhere.
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role is the message sender role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response holds the model's reply.
type Response struct {
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// splitSystem separates system entries from turn messages. The request's
// own System comes first.
func splitSystem(req Request) (string, []Message) {
	system := req.System
	turns := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	// If not in the map, use as-is (allows direct model IDs).
	return name
}

package ai

import "context"

// Roles understood by every provider. Providers translate them to their own
// wire names (Gemini keeps "model", OpenAI-style APIs use "assistant").
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleModel  = "model"
)

type Message struct {
	Role    string
	Content string
}

// Provider answers a full conversation in one call.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// splitSystem pulls system messages out of the conversation, joined in order.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// openAIRole maps the neutral model role to "assistant".
func openAIRole(role string) string {
	if role == RoleModel {
		return "assistant"
	}
	return role
}

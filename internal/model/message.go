package model

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation as seen by the pipeline.
// The agent runtime owns history; stages only read and rewrite content.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LastUserContent returns the content of the most recent user message,
// or "" if the conversation contains none.
func LastUserContent(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// LastAssistantIndex returns the index of the most recent assistant
// message, or -1 if the conversation contains none.
func LastAssistantIndex(msgs []Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleAssistant {
			return i
		}
	}
	return -1
}

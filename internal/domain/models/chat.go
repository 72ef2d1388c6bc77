package models

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a session's chat history. Never edited after append.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatReply is the chatbot answer. Category "error" marks a degraded reply.
type ChatReply struct {
	Response string `json:"response"`
	Category string `json:"categoria"`
}

const (
	ChatCategoryError = "error"
	NoReplyText       = "Sin respuesta"
)

// DefaultSuggestions is shown when the suggestion list cannot be fetched.
func DefaultSuggestions() []string {
	return []string{"¿Qué es invertir?", "¿Qué es el riesgo?"}
}

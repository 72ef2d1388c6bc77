package models

import (
	"time"

	"github.com/google/uuid"
)

type View string

const (
	ViewChatbot   View = "chatbot"
	ViewOptimizer View = "optimizer"
	ViewSearch    View = "search"
)

// ParseView maps a navigation value to a view, falling back to def.
func ParseView(s string, def View) View {
	switch View(s) {
	case ViewChatbot, ViewOptimizer, ViewSearch:
		return View(s)
	}
	if def == "" {
		return ViewChatbot
	}
	return def
}

// Session is the per-browser dashboard state.
type Session struct {
	ID                 string          `json:"id"`
	LoggedIn           bool            `json:"logged_in"`
	Username           string          `json:"username,omitempty"`
	ChatHistory        []ChatMessage   `json:"chat_history"`
	OptimizationResult *AnalysisResult `json:"optimization_result,omitempty"`
	View               View            `json:"view"`
	TickerInput        string          `json:"ticker_input"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func NewSession(now time.Time) *Session {
	return &Session{
		ID:          uuid.NewString(),
		ChatHistory: []ChatMessage{},
		View:        ViewChatbot,
		TickerInput: DefaultTickerInput,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AppendExchange adds the user text and the assistant reply, in that order.
func (s *Session) AppendExchange(user, assistant string) {
	s.ChatHistory = append(s.ChatHistory,
		ChatMessage{Role: RoleUser, Content: user},
		ChatMessage{Role: RoleAssistant, Content: assistant},
	)
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Credentials as typed into the login form.
type Credentials struct {
	Username string
	Password string
}

// Principal is an authenticated user.
type Principal struct {
	Username string
}

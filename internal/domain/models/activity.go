package models

import (
	"time"

	"github.com/google/uuid"
)

type ActivityKind string

const (
	ActivityLoginOK           ActivityKind = "login_ok"
	ActivityLoginFailed       ActivityKind = "login_failed"
	ActivityLogout            ActivityKind = "logout"
	ActivityChatMessage       ActivityKind = "chat_message"
	ActivityAnalysisCompleted ActivityKind = "analysis_completed"
	ActivityCompanySearch     ActivityKind = "company_search"
)

// ActivityEvent describes one dashboard event for the activity journal.
type ActivityEvent struct {
	ID         string       `json:"id"`
	Kind       ActivityKind `json:"kind"`
	SessionID  string       `json:"session_id"`
	Username   string       `json:"username,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	Tickers    []string     `json:"tickers,omitempty"`
	Success    bool         `json:"success"`
	DurationMs int64        `json:"duration_ms"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewActivityEvent(kind ActivityKind, s *Session, now time.Time) ActivityEvent {
	ev := ActivityEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Success:    true,
		OccurredAt: now.UTC(),
	}
	if s != nil {
		ev.SessionID = s.ID
		ev.Username = s.Username
	}
	return ev
}

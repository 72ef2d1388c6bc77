package service

import (
	"context"
	"errors"
	"time"

	"PortfolioDash/internal/domain/models"
)

var (
	ErrRejected  = errors.New("invalid credentials")
	ErrThrottled = errors.New("too many login attempts")
)

// Chatbot talks to the investment assistant. Failures come back in-band.
type Chatbot interface {
	SendMessage(ctx context.Context, message string) models.ChatReply
	Suggestions(ctx context.Context) []string
}

// CompanySearcher looks up companies by name. Failures yield no matches.
type CompanySearcher interface {
	SearchCompanies(ctx context.Context, query string) []models.CompanyMatch
}

// PortfolioAnalyzer runs the optimizer. Failures yield Success=false.
type PortfolioAnalyzer interface {
	AnalyzePortfolio(ctx context.Context, tickers []string) models.AnalysisResult
}

// Authenticator checks login credentials, returning ErrRejected on mismatch.
type Authenticator interface {
	Authenticate(ctx context.Context, c models.Credentials) (models.Principal, error)
}

// SessionTokens signs and verifies the session cookie value.
type SessionTokens interface {
	Issue(sessionID string) (string, error)
	Parse(token string) (sessionID string, expiresAt time.Time, err error)
}

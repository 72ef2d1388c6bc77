package backend

import (
	"time"

	"PortfolioDash/internal/domain/repository"
	domsvc "PortfolioDash/internal/domain/service"
	"PortfolioDash/pkg/config"
	xhttp "PortfolioDash/pkg/http"
	"PortfolioDash/pkg/logger"
)

const (
	pathChatMessage     = "/api/chatbot/message"
	pathChatSuggestions = "/api/chatbot/suggestions"
	pathSearch          = "/api/portfolio/search"
	pathAnalyze         = "/api/portfolio/analyze"
)

const (
	outcomeOK       = "ok"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

// Client is the portfolio backend wrapper. None of its calls return an
// error: failures are turned into fallback values.
type Client struct {
	lookup  *HTTPServiceBase
	chat    *HTTPServiceBase
	analyze *HTTPServiceBase
	log     *logger.Logger
	metrics repository.Metrics
}

// NewClient builds the wrapper from the backend section of cfg.
func NewClient(cfg *config.Config, l *logger.Logger, m repository.Metrics, opts ...xhttp.ClientOption) *Client {
	if l == nil {
		l = logger.Nop()
	}
	b := cfg.Backend
	return &Client{
		lookup:  NewHTTPServiceBase(b.BaseURL, b.Timeouts.Lookup, opts...),
		chat:    NewHTTPServiceBase(b.BaseURL, b.Timeouts.Chat, opts...),
		analyze: NewHTTPServiceBase(b.BaseURL, b.Timeouts.Analyze, opts...),
		log:     l.With(logger.String("component", "backend")),
		metrics: m,
	}
}

func (c *Client) observe(endpoint, outcome string, start time.Time, err error) {
	d := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordBackendCall(endpoint, outcome, d)
	}
	if outcome == outcomeOK {
		c.log.Debug("backend call", logger.String("endpoint", endpoint), logger.Duration("duration_ms", d))
		return
	}
	fields := []logger.Field{
		logger.String("endpoint", endpoint),
		logger.String("outcome", outcome),
		logger.Duration("duration_ms", d),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	c.log.Warn("backend call degraded", fields...)
}

var (
	_ domsvc.Chatbot           = (*Client)(nil)
	_ domsvc.CompanySearcher   = (*Client)(nil)
	_ domsvc.PortfolioAnalyzer = (*Client)(nil)
)

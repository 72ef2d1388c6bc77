package web

import (
	"fmt"
	"html/template"
	"math"
	"strconv"

	"PortfolioDash/internal/domain/models"
)

// PageData is what every page template receives.
type PageData struct {
	Title          string
	Username       string
	View           models.View
	Notice         string
	Error          string
	CredentialHint bool
	Status         int

	Chat      *ChatView
	Optimizer *OptimizerView
	Search    *SearchView
}

type ChatLine struct {
	IsUser bool
	Text   string
	HTML   template.HTML
}

type ChatView struct {
	Messages    []ChatLine
	Suggestions []string
}

type OptimizerView struct {
	TickerInput string
	Result      *ResultView
}

type SearchView struct {
	Query   string
	Ran     bool
	Matches []models.CompanyMatch
}

type AllocationRow struct {
	Ticker  string
	Percent string
}

type ParamRow struct {
	Ticker     string
	Drift      string
	Volatility string
}

// ResultView is an analysis result with every number already formatted.
type ResultView struct {
	Success bool
	Failure string

	ExecutionTime string
	Sharpe        string
	VaR           string
	VaRInfo       string
	BuyHold       string
	Chart         template.HTML
	Allocation    []AllocationRow
	Params        []ParamRow
	RMSEModel     string
	RMSEBaseline  string
}

// fixed rounds the binary value itself, so 2.675 gives "2.67" like a
// printf-style formatter does.
func fixed(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}

func percentOf(fraction float64, places int) string {
	return fixed(fraction*100, places)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func chatView(history []models.ChatMessage, suggestions []string) *ChatView {
	v := &ChatView{Messages: make([]ChatLine, 0, len(history)), Suggestions: suggestions}
	for _, m := range history {
		if m.Role == models.RoleUser {
			v.Messages = append(v.Messages, ChatLine{IsUser: true, Text: m.Content})
			continue
		}
		v.Messages = append(v.Messages, ChatLine{HTML: renderMarkdown(m.Content)})
	}
	return v
}

func resultView(r *models.AnalysisResult) *ResultView {
	if r == nil {
		return nil
	}
	if !r.Success {
		return &ResultView{Failure: r.FailureMessage()}
	}

	v := &ResultView{
		Success:       true,
		ExecutionTime: fixed(deref(r.ExecutionTime), 2),
		Sharpe:        fixed(deref(r.SharpeRatio), 4),
		VaR:           percentOf(r.VaR95, 2) + "%",
		VaRInfo: fmt.Sprintf("Existe un 5%% de probabilidad de perder más del %s%% en 30 días.",
			fixed(math.Abs(r.VaR95*100), 2)),
	}
	if m := r.Metrics; m != nil {
		v.BuyHold = fixed(deref(m.GainVsBuyHold), 2) + "%"
		v.RMSEModel = fixed(deref(m.RMSEModel), 6)
		v.RMSEBaseline = fixed(deref(m.RMSEBaseline), 6)
	}

	bars := make([]chartBar, 0, len(r.Weights))
	for _, w := range r.Weights {
		bars = append(bars, chartBar{Label: w.Ticker, Value: w.Weight * 100})
		v.Allocation = append(v.Allocation, AllocationRow{Ticker: w.Ticker, Percent: percentOf(w.Weight, 2) + "%"})
	}
	v.Chart = barChartSVG("Asignación de Capital", "Porcentaje (%)", bars)

	for _, p := range r.Projected {
		v.Params = append(v.Params, ParamRow{
			Ticker:     p.Ticker,
			Drift:      fixed(deref(p.AnnualDrift), 2) + "%",
			Volatility: fixed(deref(p.AnnualVolatility), 2) + "%",
		})
	}
	return v
}

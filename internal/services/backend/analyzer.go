package backend

import (
	"context"
	"fmt"
	"time"

	"PortfolioDash/internal/domain/models"
	xhttp "PortfolioDash/pkg/http"
)

type analyzeRequest struct {
	Tickers []string `json:"tickers"`
}

// AnalyzePortfolio runs the optimizer for tickers. Transport failures and
// malformed success bodies come back as Success=false results.
func (c *Client) AnalyzePortfolio(ctx context.Context, tickers []string) models.AnalysisResult {
	start := time.Now()
	var res models.AnalysisResult
	if _, err := c.analyze.PostJSON(ctx, pathAnalyze, analyzeRequest{Tickers: tickers}, &res); err != nil {
		c.observe("analyze", outcomeFailed, start, err)
		return models.FailedAnalysis(err.Error())
	}

	if !res.Success {
		c.observe("analyze", outcomeDegraded, start, fmt.Errorf("%s", res.FailureMessage()))
		return res
	}
	if verrs := xhttp.ValidateStruct(ctx, &res); verrs != nil {
		c.observe("analyze", outcomeDegraded, start, verrs)
		return models.FailedAnalysis(fmt.Sprintf("Respuesta inválida del backend: %s", verrs.First()))
	}

	c.observe("analyze", outcomeOK, start, nil)
	return res
}

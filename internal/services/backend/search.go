package backend

import (
	"context"
	"time"

	"PortfolioDash/internal/domain/models"
	xhttp "PortfolioDash/pkg/http"
)

type searchResponse struct {
	Matches []models.CompanyMatch `json:"matches" validate:"dive"`
}

// SearchCompanies returns the matches for query. Any failure, including a
// body that does not match the expected shape, yields an empty list.
func (c *Client) SearchCompanies(ctx context.Context, query string) []models.CompanyMatch {
	start := time.Now()
	var resp searchResponse
	_, err := c.lookup.GetJSON(ctx, pathSearch, map[string][]string{"query": {query}}, &resp)
	if err != nil {
		c.observe("search", outcomeFailed, start, err)
		return []models.CompanyMatch{}
	}
	if verrs := xhttp.ValidateStruct(ctx, &resp); verrs != nil {
		c.observe("search", outcomeDegraded, start, verrs)
		return []models.CompanyMatch{}
	}
	c.observe("search", outcomeOK, start, nil)
	if resp.Matches == nil {
		return []models.CompanyMatch{}
	}
	return resp.Matches
}

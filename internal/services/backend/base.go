package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "PortfolioDash/pkg/http"
)

// HTTPServiceBase holds the base URL and a client with one fixed timeout.
// Each call is a single attempt.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a base for baseURL with the given timeout.
func NewHTTPServiceBase(baseURL string, timeout time.Duration, opts ...xhttp.ClientOption) *HTTPServiceBase {
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

// PostJSON posts payload to path and decodes the body into dest whatever the status.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) (int, error) {
	status, err := b.client.SendAndDecode(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return status, fmt.Errorf("post %s: %w", path, err)
	}
	return status, nil
}

// GetJSON issues a GET with query parameters and decodes the body into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) (int, error) {
	status, err := b.client.SendAndDecode(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		QueryParams: query,
	}, dest)
	if err != nil {
		return status, fmt.Errorf("get %s: %w", path, err)
	}
	return status, nil
}

package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"PortfolioDash/internal/services/backend"
	"PortfolioDash/pkg/config"
)

func backendAt(baseURL string, timeout time.Duration) *backend.Client {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeouts.Lookup = timeout
	cfg.Backend.Timeouts.Chat = timeout
	cfg.Backend.Timeouts.Analyze = timeout
	return backend.NewClient(cfg, nil, nil)
}

// closedBackend points at a port nothing listens on any more.
func closedBackend(t *testing.T) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	return backendAt(addr, time.Second)
}

// slowBackend never answers within the client timeout.
func slowBackend(t *testing.T) *backend.Client {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return backendAt(srv.URL, 50*time.Millisecond)
}

func TestBackendOutageShowsFallbackInEveryView(t *testing.T) {
	backends := map[string]func(*testing.T) *backend.Client{
		"closed": closedBackend,
		"slow":   slowBackend,
	}
	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			bc := mk(t)
			c := newClientFor(t, services{chatbot: bc, search: bc, analyzer: bc})
			c.login()

			rec := c.do(http.MethodGet, "/app?view=chatbot", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			expectBody(t, rec, "¿Qué es invertir?", "¿Qué es el riesgo?")

			expectRedirect(t, c.do(http.MethodPost, "/app/chat", url.Values{"message": {"hola"}}), "/app?view=chatbot")
			expectBody(t, c.do(http.MethodGet, "/app?view=chatbot", nil), "hola", "Error de conexión")

			expectRedirect(t, c.do(http.MethodPost, "/app/optimizer/analyze", url.Values{"tickers": {"AAPL, MSFT"}}), "/app?view=optimizer")
			expectBody(t, c.do(http.MethodGet, "/app?view=optimizer", nil), "❌ Error:")

			rec = c.do(http.MethodGet, "/app?view=search&query=apple", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			expectBody(t, rec, "No se encontraron resultados")
		})
	}
}

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type ipRoute struct{}

func (ipRoute) RegisterRoutes(e *echo.Echo) {
	e.GET("/ip", func(c echo.Context) error { return c.String(http.StatusOK, c.RealIP()) })
}

func realIP(t *testing.T, srv *Server, remote string, header ...string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = remote
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestServerIgnoresForwardedHeadersByDefault(t *testing.T) {
	srv := NewServer(ipRoute{}, nil)

	got := realIP(t, srv, "203.0.113.7:5555",
		echo.HeaderXForwardedFor, "10.0.0.9",
		echo.HeaderXRealIP, "10.0.0.10",
	)
	if got != "203.0.113.7" {
		t.Fatalf("client-supplied headers must not pick the IP, got %q", got)
	}
}

func TestServerTrustsConfiguredProxy(t *testing.T) {
	srv := NewServer(ipRoute{}, nil, WithTrustedProxies([]string{"192.0.2.0/24", "not-a-cidr"}))

	if got := realIP(t, srv, "192.0.2.10:5555", echo.HeaderXForwardedFor, "198.51.100.4"); got != "198.51.100.4" {
		t.Fatalf("forwarded IP from a trusted proxy, got %q", got)
	}
	if got := realIP(t, srv, "203.0.113.7:5555", echo.HeaderXForwardedFor, "198.51.100.4"); got != "203.0.113.7" {
		t.Fatalf("forwarded IP from an untrusted peer, got %q", got)
	}
}

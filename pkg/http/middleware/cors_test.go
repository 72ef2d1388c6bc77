package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func corsServer(origins ...string) *echo.Echo {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: origins, AllowMethods: []string{http.MethodGet}}))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	return e
}

func request(e *echo.Echo, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/healthz", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	rec := request(corsServer("https://ops.example.com"), http.MethodGet, "https://ops.example.com")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://ops.example.com" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
}

func TestCORSIgnoresOtherOrigins(t *testing.T) {
	rec := request(corsServer("https://ops.example.com"), http.MethodGet, "https://evil.example.com")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("request should still be served, got %d", rec.Code)
	}
}

func TestCORSWildcardDoesNotReflect(t *testing.T) {
	rec := request(corsServer("*"), http.MethodGet, "https://any.example.com")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Fatalf("expected *, got %q", got)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowCredentials) != "" {
		t.Fatalf("wildcard must not allow credentials")
	}
}

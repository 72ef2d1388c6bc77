package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"PortfolioDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a panic into a 500 routed through the echo error handler.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					l.Error("panic recovered",
						logger.Error(perr),
						logger.String("path", c.Request().URL.Path),
						logger.String("stack", string(debug.Stack())),
					)
					err = echo.NewHTTPError(http.StatusInternalServerError).SetInternal(perr)
				}
			}()
			return next(c)
		}
	}
}

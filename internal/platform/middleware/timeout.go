package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// TimeoutMessage is the detail of a 504 caused by the request deadline.
const TimeoutMessage = "Request processing exceeded the allowed time limit"

// RequestTimeout puts a deadline on the request context. The handler runs
// on the request goroutine and stops at its next context check; a deadline
// error it returns becomes a 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout:      timeout,
		ErrorHandler: timeoutError,
	})
}

func timeoutError(err error, c echo.Context) error {
	cause := err
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code != http.StatusInternalServerError || he.Internal == nil {
			return err
		}
		cause = he.Internal
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, TimeoutMessage).SetInternal(cause)
	}
	return err
}

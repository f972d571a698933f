package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error that reaches echo as {"detail": ...},
// the body shape clients of this API expect for failures.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			logger.Error().Err(err).
				Str("request_id", requestID(c)).
				Msg("unhandled error")
			he = echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}

		detail := he.Message
		if detail == nil {
			detail = http.StatusText(he.Code)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, map[string]interface{}{"detail": detail})
		}
		if werr != nil {
			logger.Error().Err(werr).Str("request_id", requestID(c)).Msg("write error response")
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get(RequestIDKey).(string)
	return rid
}

package httpserver

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookly/internal/apperr"
)

// NewErrorHandler maps apperr kinds to HTTP statuses and a stable
// machine-readable body. This is the single place the kind→status
// correspondence lives; everything else just returns kinds.
func NewErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			status := apperr.Status(appErr.Kind)
			if jsonErr := c.JSON(status, echo.Map{
				"error":   string(appErr.Kind),
				"message": appErr.Message,
			}); jsonErr != nil {
				c.Logger().Error(jsonErr)
			}
			return
		}

		e.DefaultHTTPErrorHandler(err, c)
	}
}

package loggingmw

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookly/internal/apperr"
	"github.com/Skotchmaster/bookly/internal/logging"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestRequestLoggerIntoContext(t *testing.T) {
	base, buf := newTestLogger()

	e := echo.New()
	handler := RequestLogger(base)(func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside handler")
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	out := buf.String()
	require.Contains(t, out, "inside handler")
	// handler logs carry the request attributes from the derived logger
	require.Contains(t, out, `"method":"GET"`)
	require.Contains(t, out, `"path":"/books"`)
	require.Contains(t, out, "request completed")
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	base, buf := newTestLogger()

	e := echo.New()
	handler := RequestLogger(base)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-42")
	require.NoError(t, handler(c))

	require.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestRequestLoggerReportsErrors(t *testing.T) {
	base, buf := newTestLogger()

	e := echo.New()
	handler := RequestLogger(base)(func(c echo.Context) error {
		return apperr.New(apperr.MissingCredential, "authorization header missing")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	require.Contains(t, buf.String(), "request completed")
	require.Contains(t, buf.String(), `"level":"ERROR"`)
}

package sitecms

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/sitecms/store"
)

// apiError is the JSON body of every failed request.
type apiError struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, apiError{Error: msg})
}

func notFound(what string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, apiError{Error: what + " not found"})
}

// storeError maps a persistence error onto an HTTP error: missing rows are
// 404, an unreachable database is 503, anything else is 500 carrying the
// underlying message.
func storeError(err error, what string) *echo.HTTPError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound(what)
	case store.IsConnectivityError(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, apiError{
			Error:   "Database connection failed",
			Details: err.Error(),
		}).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, apiError{Error: err.Error()}).SetInternal(err)
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := apiError{Error: http.StatusText(code)}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case apiError:
			body = m
		case string:
			body = apiError{Error: m}
		case error:
			body = apiError{Error: m.Error()}
		default:
			body = apiError{Error: fmt.Sprint(m)}
		}
	} else {
		body = apiError{Error: err.Error()}
	}

	if code >= 500 {
		a.Log.Error("server error",
			zap.Int("status", code),
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		a.Log.Warn("write error response", zap.Error(err))
	}
}

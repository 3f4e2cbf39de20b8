package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophbook/internal/common"
)

type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{OK: true, Data: data})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{OK: false, Error: msg})
}

// statusFor maps a service error to the status and the message shown to the
// client. Messages of 5xx errors are generic; the cause is only logged.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, common.ErrorInvalidCredentials):
		return http.StatusUnauthorized, common.ErrorInvalidCredentials.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, common.ErrorUnauthorized.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrorUnsupportedAction):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorBusy):
		return http.StatusServiceUnavailable, "storage busy, retry later"
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

// errorHandler renders every error that reaches echo, including routing
// errors and recovered panics, as an envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var status int
	var msg string

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(he.Code)
		if m, isString := he.Message.(string); isString && status < http.StatusInternalServerError {
			msg = m
		}
	} else {
		status, msg = statusFor(err)
	}

	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "error", err, "status", status)
	} else {
		s.logger.Debug(ctx, "request rejected", "error", err, "status", status)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = fail(c, status, msg)
	}
	if err != nil {
		s.logger.Error(ctx, "writing error response", "error", err)
	}
}

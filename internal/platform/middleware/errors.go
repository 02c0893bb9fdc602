package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/pkg/response"
)

const genericInternalMessage = "internal server error"

func statusFor(err error) int {
	if ae, ok := apperr.As(err); ok {
		return ae.HTTPStatus()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// ErrorBody converts err into the failure envelope and its HTTP status.
// Internal details never reach the client.
func ErrorBody(err error) (int, response.Failure) {
	if ae, ok := apperr.As(err); ok {
		msg := ae.Message
		if ae.Kind == apperr.KindInternal {
			msg = genericInternalMessage
		}
		return ae.HTTPStatus(), response.Fail(msg, ae.Code)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, response.Fail(msg, codeForStatus(he.Code))
	}

	return http.StatusInternalServerError, response.Fail(genericInternalMessage, apperr.CodeInternal)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.CodeInvalidInput
	case http.StatusUnauthorized:
		return apperr.CodeUnauthenticated
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound:
		return apperr.CodeNotFound
	default:
		if status >= 500 {
			return apperr.CodeInternal
		}
		return http.StatusText(status)
	}
}

// HTTPErrorHandler renders every error as {"success": false, "message", "code"}.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := ErrorBody(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/platform/auth"
)

func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			// Errors are rendered after the middleware chain returns, so the
			// response status is not final yet; derive it from the error.
			status := c.Response().Status
			if err != nil {
				status = statusFor(err)
			}

			evt := logger.Info()
			switch {
			case status < 400 && auth.IsPublicPath(req.URL.Path):
				// Probes and scrapes would otherwise drown the request log.
				evt = logger.Debug()
			case status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn().Err(err)
			}

			if actor, ok := auth.ActorFromContext(c.Request().Context()); ok {
				evt = evt.Int64("user_id", actor.UserID)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

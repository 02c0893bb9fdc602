package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/auth"
)

// Recovery turns a handler panic into an INTERNAL error rendered through the
// regular error envelope.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				ev := logger.Error().
					Interface("panic", r).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Bytes("stack", debug.Stack())
				if rid, ok := c.Get("request_id").(string); ok {
					ev = ev.Str("request_id", rid)
				}
				if actor, ok := auth.ActorFromContext(c.Request().Context()); ok {
					ev = ev.Int64("actor", actor.UserID)
				}
				ev.Msg("panic recovered")

				err = apperr.Internal("internal server error", fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}

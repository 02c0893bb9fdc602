package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acolhida/acolhida/internal/platform/apperr"
)

// CurrentActor returns the authenticated actor or an authentication error.
func CurrentActor(c echo.Context) (Actor, error) {
	a, ok := ActorFromContext(c.Request().Context())
	if !ok || a.UserID <= 0 {
		return Actor{}, apperr.Unauthenticated("authentication required")
	}
	return a, nil
}

// RequireAuth rejects requests without an authenticated actor.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := CurrentActor(c); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequirePermission returns middleware that checks the actor is granted
// module:action by role or scope.
func RequirePermission(module, action string) echo.MiddlewareFunc {
	return RequireAnyPermission(T(module, action))
}

// RequireAnyPermission passes when any of the targets is granted.
func RequireAnyPermission(targets ...Target) echo.MiddlewareFunc {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Module + ":" + t.Action
	}
	msg := fmt.Sprintf("required permission: %s", strings.Join(names, " or "))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, err := CurrentActor(c)
			if err != nil {
				return err
			}
			if !AuthorizeAny(a.Role, a.Scopes, targets...) {
				return apperr.Forbidden(apperr.CodeForbidden, msg)
			}
			return next(c)
		}
	}
}

// RequireAdmin returns middleware that only lets ADM actors through.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, err := CurrentActor(c)
			if err != nil {
				return err
			}
			if !a.IsAdmin() {
				return apperr.Forbidden(apperr.CodeForbiddenNotAdmin, "administrator role required")
			}
			return next(c)
		}
	}
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/acolhida/acolhida/internal/platform/apperr"
)

func contextWithActor(a *Actor) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if a != nil {
		req = req.WithContext(WithActor(context.Background(), *a))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequireAuth(t *testing.T) {
	c, _ := contextWithActor(nil)
	if err := RequireAuth()(okHandler)(c); apperr.KindOf(err) != apperr.KindAuthentication {
		t.Errorf("expected authentication error, got %v", err)
	}

	c, rec := contextWithActor(&Actor{UserID: 3, Role: RoleReadOnly})
	if err := RequireAuth()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequirePermission_Allowed(t *testing.T) {
	actor := NewActor(5, "usuario", nil)
	c, rec := contextWithActor(&actor)

	if err := RequirePermission("profissionais", "view")(okHandler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequirePermission_Denied(t *testing.T) {
	actor := NewActor(5, "usuario", nil)
	c, _ := contextWithActor(&actor)

	err := RequirePermission("profissionais", "edit")(okHandler)(c)
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if ae, _ := apperr.As(err); ae.HTTPStatus() != http.StatusForbidden {
		t.Errorf("expected 403, got %d", ae.HTTPStatus())
	}
}

func TestRequirePermission_ScopeGrant(t *testing.T) {
	actor := NewActor(5, "consulta", []Scope{NewScope("profissionais", "*")})
	c, _ := contextWithActor(&actor)

	if err := RequirePermission("profissionais", "edit")(okHandler)(c); err != nil {
		t.Fatalf("expected scope to grant access, got %v", err)
	}
}

func TestRequireAnyPermission(t *testing.T) {
	actor := NewActor(5, "usuario", []Scope{NewScope("vagas", "decide")})
	c, _ := contextWithActor(&actor)

	mw := RequireAnyPermission(T("profissionais", "*"), T("vagas", "decide"))
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("expected second target to pass, got %v", err)
	}

	plain := NewActor(6, "usuario", nil)
	c, _ = contextWithActor(&plain)
	if err := mw(okHandler)(c); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("expected authorization error, got %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	admin := NewActor(1, "Gestão", nil)
	c, _ := contextWithActor(&admin)
	if err := RequireAdmin()(okHandler)(c); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}

	// A wildcard scope does not make a user an administrator.
	user := NewActor(2, "usuario", []Scope{NewScope("*", "*")})
	c, _ = contextWithActor(&user)
	if err := RequireAdmin()(okHandler)(c); apperr.CodeOf(err) != apperr.CodeForbiddenNotAdmin {
		t.Errorf("expected FORBIDDEN_NOT_ADMIN, got %v", err)
	}
}

package access

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/auth"
	"github.com/acolhida/acolhida/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/access-settings", h.GetSettings, auth.RequireAuth())
	api.PUT("/access-settings", h.UpdateSettings, auth.RequireAdmin())
}

func (h *Handler) GetSettings(c echo.Context) error {
	st, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return response.OK(c, st)
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "invalid request body")
	}
	st, err := h.svc.Update(c.Request().Context(), in, actor.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response.Envelope{Success: true, Data: st, Message: "access settings updated"})
}

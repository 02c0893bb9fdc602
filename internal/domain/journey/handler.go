package journey

import (
	"github.com/google/uuid"
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
	api.GET("/assistidos/:id/status-history", h.GetStatusHistory, auth.RequirePermission("assistidos", "view"))
}

func (h *Handler) GetStatusHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "invalid patient id")
	}
	items, err := h.svc.History(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, items)
}

package intake

import (
	"net/http"

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
	api.POST("/social-interviews", h.CreateInterview, auth.RequireAuth())
	api.PUT("/social-interviews/:id", h.UpdateInterview, auth.RequireAuth())

	// Placement decisions are taken by whoever manages professionals or holds
	// the dedicated vagas scope.
	api.POST("/vaga-decisions", h.RecordVagaDecision,
		auth.RequireAnyPermission(auth.T("profissionais", "*"), auth.T("vagas", "decide")))
}

func (h *Handler) CreateInterview(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	var in CreateInterviewInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "invalid request body")
	}
	res, err := h.svc.CreateInterview(c.Request().Context(), in, actor.UserID)
	if err != nil {
		return err
	}
	return response.WithFields(c, http.StatusCreated, response.Fields{
		"data":                 res.Interview,
		"status_jornada_atual": res.Transition.NewStatus,
	})
}

func (h *Handler) UpdateInterview(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "invalid interview id")
	}
	var in UpdateInterviewInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "invalid request body")
	}
	res, err := h.svc.UpdateInterview(c.Request().Context(), id, in, actor.UserID)
	if err != nil {
		return err
	}
	return response.WithFields(c, http.StatusOK, response.Fields{
		"data":                 res.Interview,
		"status_jornada_atual": res.Transition.NewStatus,
	})
}

func (h *Handler) RecordVagaDecision(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	var in VagaDecisionInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "invalid request body")
	}
	res, err := h.svc.RecordVagaDecision(c.Request().Context(), in, actor.UserID)
	if err != nil {
		return err
	}
	return response.WithFields(c, http.StatusCreated, response.Fields{
		"data":                 res.Decision,
		"status_jornada_atual": res.Transition.NewStatus,
		"status_changed":       res.Transition.Changed,
	})
}

package professional

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/auth"
	"github.com/acolhida/acolhida/pkg/pagination"
	"github.com/acolhida/acolhida/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/profissionais")

	g.PATCH("/:id/link-user", h.LinkUser, auth.RequirePermission("profissionais", "edit"))
	g.PATCH("/:id/unlink-user", h.UnlinkUser, auth.RequirePermission("profissionais", "edit"))
	g.POST("/:id/link-requests", h.CreateLinkRequest, auth.RequirePermission("profissionais", "view"))
	g.POST("/link-by-email", h.LinkByEmail, auth.RequireAuth())

	g.GET("/link-requests", h.ListLinkRequests, auth.RequirePermission("profissionais", "edit"), auth.RequireAdmin())
	g.PATCH("/link-requests/:id/approve", h.ApproveLinkRequest, auth.RequireAdmin())
	g.PATCH("/link-requests/:id/reject", h.RejectLinkRequest, auth.RequireAdmin())
}

type linkUserBody struct {
	UserID int64 `json:"user_id"`
}

type notesBody struct {
	Notes string `json:"notes"`
}

func pathID(c echo.Context, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.CodeInvalidInput, "invalid "+what+" id")
	}
	return id, nil
}

// bindNotes reads an optional {"notes": ...} body.
func bindNotes(c echo.Context) (string, error) {
	var body notesBody
	if c.Request().ContentLength == 0 {
		return "", nil
	}
	if err := c.Bind(&body); err != nil {
		return "", apperr.Validation(apperr.CodeInvalidInput, "invalid request body")
	}
	return body.Notes, nil
}

func (h *Handler) LinkUser(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "professional")
	if err != nil {
		return err
	}
	var body linkUserBody
	if err := c.Bind(&body); err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "invalid request body")
	}
	res, err := h.svc.DirectLink(c.Request().Context(), id, body.UserID, actor)
	if err != nil {
		return err
	}
	return response.OK(c, res)
}

func (h *Handler) UnlinkUser(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "professional")
	if err != nil {
		return err
	}
	res, err := h.svc.DirectUnlink(c.Request().Context(), id, actor)
	if err != nil {
		return err
	}
	return response.OK(c, res)
}

func (h *Handler) CreateLinkRequest(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "professional")
	if err != nil {
		return err
	}
	notes, err := bindNotes(c)
	if err != nil {
		return err
	}
	lr, err := h.svc.CreateLinkRequest(c.Request().Context(), id, actor, notes)
	if err != nil {
		return err
	}
	return response.Created(c, lr)
}

func (h *Handler) ListLinkRequests(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	f := ListFilter{}
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := ParseRequestStatus(raw)
		if !ok {
			return apperr.Validation(apperr.CodeInvalidInput, "status must be pending, approved or rejected")
		}
		f.Status = st
	}
	p := pagination.FromContext(c)
	f.Limit, f.Offset = p.Limit, p.Offset

	items, total, err := h.svc.ListLinkRequests(c.Request().Context(), f, actor)
	if err != nil {
		return err
	}
	return response.OK(c, pagination.NewPage(items, total, p))
}

func (h *Handler) ApproveLinkRequest(c echo.Context) error {
	return h.decide(c, h.svc.ApproveLinkRequest)
}

func (h *Handler) RejectLinkRequest(c echo.Context) error {
	return h.decide(c, h.svc.RejectLinkRequest)
}

type decideFunc func(ctx context.Context, id uuid.UUID, actor auth.Actor, notes string) (*LinkRequest, error)

func (h *Handler) decide(c echo.Context, fn decideFunc) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "link request")
	if err != nil {
		return err
	}
	notes, err := bindNotes(c)
	if err != nil {
		return err
	}
	lr, err := fn(c.Request().Context(), id, actor, notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response.Envelope{Success: true, Data: lr, Message: "link request " + string(lr.Status)})
}

func (h *Handler) LinkByEmail(c echo.Context) error {
	actor, err := auth.CurrentActor(c)
	if err != nil {
		return err
	}
	res, err := h.svc.LinkByEmail(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return response.OK(c, res)
}

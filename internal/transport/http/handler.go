package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vn.io.arda/useradmin/internal/application"
	"vn.io.arda/useradmin/internal/domain"
	"vn.io.arda/useradmin/internal/obs"
	"vn.io.arda/useradmin/internal/transport/mw"
)

// AdminService is the application surface the transport needs.
type AdminService interface {
	Dispatch(ctx context.Context, token, action string, data json.RawMessage) (*application.Result, error)
	ListUsers(ctx context.Context, token string, f domain.ProfileFilter) ([]*domain.UserProfile, error)
	Authenticate(ctx context.Context, token string) (domain.Caller, error)
}

// Handler holds all HTTP handler methods.
type Handler struct {
	svc AdminService
}

// NewHandler creates a new Handler.
func NewHandler(svc AdminService) *Handler {
	return &Handler{svc: svc}
}

// adminRequest is the dispatch envelope of POST /admin.
type adminRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Admin handles POST /admin and POST /admin/:action. A path action wins
// over the body action when both are present.
func (h *Handler) Admin(c echo.Context) error {
	var req adminRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.E(domain.KindInvalidArgument, "malformed request body"))
	}
	if a := c.Param("action"); a != "" {
		req.Action = a
	}
	if req.Action == "" {
		return writeError(c, domain.E(domain.KindInvalidArgument, "action is required"))
	}
	if req.Data == nil {
		req.Data = json.RawMessage("{}")
	}

	res, err := h.svc.Dispatch(c.Request().Context(), mw.Token(c), req.Action, req.Data)
	if err != nil {
		obs.ActionProcessed(req.Action, domain.KindOf(err).String())
		return writeError(c, err)
	}
	obs.ActionProcessed(req.Action, "ok")

	body := map[string]any{}
	for k, v := range res.Data {
		body[k] = v
	}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	return c.JSON(http.StatusOK, body)
}

// ListUsers handles GET /users?orgId=&departmentId=.
func (h *Handler) ListUsers(c echo.Context) error {
	f := domain.ProfileFilter{
		OrgID:        c.QueryParam("orgId"),
		DepartmentID: c.QueryParam("departmentId"),
	}
	users, err := h.svc.ListUsers(c.Request().Context(), mw.Token(c), f)
	if err != nil {
		return writeError(c, err)
	}
	if users == nil {
		users = []*domain.UserProfile{}
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

// Health handles GET /health. The route sits behind the bearer middleware;
// a verified caller gets {ok:true}.
func (h *Handler) Health(c echo.Context) error {
	if _, err := h.svc.Authenticate(c.Request().Context(), mw.Token(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Root handles GET / as an unauthenticated liveness probe.
func (h *Handler) Root(c echo.Context) error {
	return c.String(http.StatusOK, "useradmin up")
}

// writeError is the single failure-to-wire conversion point. Untyped
// errors are reported as internal without leaking detail.
func writeError(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		log.Error().Err(err).Str("path", c.Path()).Msg("internal error")
	}
	return c.JSON(kind.HTTPStatus(), map[string]string{
		"error":  kind.String(),
		"detail": domain.Detail(err),
	})
}

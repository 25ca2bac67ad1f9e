package memberships

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/platform/httpx"
)

// Handler wires HTTP endpoints for company memberships. All routes mount
// under the company scope, behind the authorization guard.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the memberships handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers membership routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/members", h.list)
	r.Get("/members/{userID}", h.get)
	r.Post("/members", h.add)
	r.Put("/members/{userID}/roles", h.updateRoles)
	r.Delete("/members/{userID}", h.remove)
}

type memberResponse struct {
	UserID int64    `json:"user_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
}

type addMemberRequest struct {
	UserID int64    `json:"user_id" validate:"required,gt=0"`
	Roles  []string `json:"roles" validate:"required,min=1,dive,required"`
}

type updateRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceUser) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	members, err := h.service.List(r.Context(), membership.CompanyID)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponses(members))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	// A member may always read their own membership; anything else needs
	// the blanket capability.
	if userID != ev.ActorID() && ev.Cannot(authz.ActionGet, authz.ResourceUser) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	member, err := h.service.Get(r.Context(), membership.CompanyID, userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(member))
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceRole) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req addMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Add(r.Context(), ev.ActorID(), membership.CompanyID, req.UserID, toRoles(req.Roles)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *Handler) updateRoles(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceRole) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req updateRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.UpdateRoles(r.Context(), ev.ActorID(), membership.CompanyID, userID, toRoles(req.Roles)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceRole) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Remove(r.Context(), ev.ActorID(), membership.CompanyID, userID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLastAdmin):
		httpx.Problem(w, http.StatusConflict, "Conflict", "company must retain at least one admin")
	case errors.Is(err, ErrAlreadyMember):
		httpx.Problem(w, http.StatusConflict, "Conflict", "user is already a member")
	case errors.Is(err, ErrNotMember):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrNoRoles), errors.Is(err, ErrInvalidRole):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		h.logger.Error("memberships service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

func toRoles(raw []string) []authz.Role {
	roles := make([]authz.Role, len(raw))
	for i, s := range raw {
		roles[i] = authz.Role(s)
	}
	return roles
}

func toResponse(m Member) memberResponse {
	roles := make([]string, len(m.Roles))
	for i, role := range m.Roles {
		roles[i] = string(role)
	}
	return memberResponse{UserID: m.UserID, Email: m.Email, Name: m.Name, Roles: roles}
}

func toResponses(members []Member) []memberResponse {
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = toResponse(m)
	}
	return out
}

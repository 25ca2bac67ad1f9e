package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/platform/httpx"
	"github.com/akademi-app/akademi/internal/shared"
)

var errNotMember = errors.New("users: not a member of this company")

// Handler wires HTTP endpoints for user profiles inside a company scope.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the users handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Get("/users/{userID}", h.get)
	r.Put("/users/{userID}", h.update)
	r.Put("/users/{userID}/password", h.changePassword)
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=1"`
	Email string `json:"email" validate:"required,email"`
}

type changePasswordRequest struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=8"`
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
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	members, pagination, err := h.service.ListMembers(r.Context(), membership.CompanyID, page, perPage)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      members,
		"pagination": pagination,
	})
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
	// Reading your own profile never needs the blanket capability.
	if userID != ev.ActorID() && ev.Cannot(authz.ActionGet, authz.ResourceUser) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	user, err := h.service.GetMember(r.Context(), membership.CompanyID, userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if userID != ev.ActorID() && ev.Cannot(authz.ActionUpdate, authz.ResourceUser) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), membership.CompanyID, userID, req.Name, req.Email)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	ev, _, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	// Passwords are strictly personal: no capability overrides this.
	if userID != ev.ActorID() {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.ChangePassword(r.Context(), userID, req.Current, req.New); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "changed"})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWrongPassword):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "current password is incorrect")
	case errors.Is(err, ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", "email already taken")
	case errors.Is(err, errNotMember), errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("users service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

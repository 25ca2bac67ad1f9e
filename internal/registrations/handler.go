package registrations

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

// Handler wires HTTP endpoints for registrations inside a company scope.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the registrations handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers registration routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/registrations", h.list)
	r.Get("/registrations/{registrationID}", h.get)
	r.Post("/registrations", h.create)
	r.Post("/registrations/{registrationID}/confirm", h.confirm)
	r.Post("/registrations/{registrationID}/cancel", h.cancel)
}

type createRegistrationRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	ClassID   int64 `json:"class_id" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceRegistration) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	// Students only ever see their own registrations; the blanket
	// capability is scoped down rather than widened.
	if membership.HasRole(authz.RoleStudent) && !membership.HasRole(authz.RoleAdmin) && !membership.HasRole(authz.RoleTeacher) {
		regs, err := h.service.ListByStudent(r.Context(), membership.CompanyID, ev.ActorID())
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, regs)
		return
	}
	regs, err := h.service.List(r.Context(), membership.CompanyID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, regs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceRegistration) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := parseRegistrationID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	reg, err := h.service.Get(r.Context(), membership.CompanyID, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	// A student reads only their own registration.
	if membership.HasRole(authz.RoleStudent) && !membership.HasRole(authz.RoleAdmin) && !membership.HasRole(authz.RoleTeacher) && reg.StudentID != ev.ActorID() {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceRegistration) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req createRegistrationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	reg, err := h.service.Create(r.Context(), ev.ActorID(), membership.CompanyID, req.StudentID, req.ClassID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reg)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceRegistration) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := parseRegistrationID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	reg, err := h.service.Confirm(r.Context(), ev.ActorID(), membership.CompanyID, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceRegistration) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := parseRegistrationID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	reg, err := h.service.Cancel(r.Context(), ev.ActorID(), membership.CompanyID, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", "registration cannot change status from its current state")
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Conflict", "student already registered for class")
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("registrations service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseRegistrationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "registrationID"), 10, 64)
}

package companies

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/platform/httpx"
	"github.com/akademi-app/akademi/internal/shared"
)

// Handler wires HTTP endpoints for companies.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs the companies handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers the unscoped company routes. Creating a company
// only requires an authenticated actor: the creator becomes its admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
}

// MountCompanyRoutes registers routes that live inside an existing company
// scope, behind the authorization guard.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.update)
	r.Delete("/", h.remove)
}

type companyRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, err := h.guard.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req companyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	company, err := h.service.Create(r.Context(), req.Name, req.Address, req.Phone, actorID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, company)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceCompany) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	company, err := h.service.Get(r.Context(), membership.CompanyID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceCompany) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req companyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	company, err := h.service.Update(r.Context(), Company{
		ID:      membership.CompanyID,
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceCompany) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if err := h.service.Delete(r.Context(), membership.CompanyID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNameRequired):
		httpx.RespondError(w, httpx.ErrValidation)
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("companies service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

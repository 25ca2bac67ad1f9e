package catalog

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

// Handler wires HTTP endpoints for levels and disciplines. Both mount
// under the company scope, behind the authorization guard.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers catalog routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/levels", h.listLevels)
	r.Post("/levels", h.createLevel)
	r.Put("/levels/{levelID}", h.updateLevel)
	r.Delete("/levels/{levelID}", h.deleteLevel)

	r.Get("/disciplines", h.listDisciplines)
	r.Get("/disciplines/{disciplineID}", h.getDiscipline)
	r.Post("/disciplines", h.createDiscipline)
	r.Put("/disciplines/{disciplineID}", h.updateDiscipline)
	r.Delete("/disciplines/{disciplineID}", h.deleteDiscipline)
}

type levelRequest struct {
	Name    string `json:"name" validate:"required,min=1"`
	Ordinal int    `json:"ordinal" validate:"gte=0"`
}

type disciplineRequest struct {
	Code string `json:"code" validate:"required,min=1,max=16"`
	Name string `json:"name" validate:"required,min=1"`
}

func (h *Handler) listLevels(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceLevel) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	levels, err := h.repo.ListLevels(r.Context(), membership.CompanyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, levels)
}

func (h *Handler) createLevel(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceLevel) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req levelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	level, err := h.repo.CreateLevel(r.Context(), Level{
		CompanyID: membership.CompanyID,
		Name:      req.Name,
		Ordinal:   req.Ordinal,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, level)
}

func (h *Handler) updateLevel(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceLevel) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "levelID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req levelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.UpdateLevel(r.Context(), Level{
		ID:        id,
		CompanyID: membership.CompanyID,
		Name:      req.Name,
		Ordinal:   req.Ordinal,
	}); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteLevel(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceLevel) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "levelID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.DeleteLevel(r.Context(), membership.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listDisciplines(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceDiscipline) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	disciplines, err := h.repo.ListDisciplines(r.Context(), membership.CompanyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, disciplines)
}

func (h *Handler) getDiscipline(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceDiscipline) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "disciplineID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	d, err := h.repo.GetDiscipline(r.Context(), membership.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) createDiscipline(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceDiscipline) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req disciplineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	d, err := h.repo.CreateDiscipline(r.Context(), Discipline{
		CompanyID: membership.CompanyID,
		Code:      req.Code,
		Name:      req.Name,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) updateDiscipline(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceDiscipline) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "disciplineID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req disciplineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.UpdateDiscipline(r.Context(), Discipline{
		ID:        id,
		CompanyID: membership.CompanyID,
		Code:      req.Code,
		Name:      req.Name,
	}); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteDiscipline(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceDiscipline) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "disciplineID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.DeleteDiscipline(r.Context(), membership.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error("catalog repository", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

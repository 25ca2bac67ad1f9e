package courses

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

// Handler wires HTTP endpoints for courses inside a company scope.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs the courses handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers course routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/courses", h.list)
	r.Get("/courses/{courseID}", h.get)
	r.Post("/courses", h.create)
	r.Put("/courses/{courseID}", h.update)
	r.Delete("/courses/{courseID}", h.remove)
}

type courseRequest struct {
	Name         string `json:"name" validate:"required,min=1"`
	DisciplineID int64  `json:"discipline_id" validate:"required,gt=0"`
	LevelID      int64  `json:"level_id" validate:"required,gt=0"`
	TeacherID    int64  `json:"teacher_id" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceCourse) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	courses, err := h.repo.List(r.Context(), membership.CompanyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, courses)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceCourse) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := parseCourseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	course, err := h.repo.Get(r.Context(), membership.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceCourse) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req courseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	course, err := h.repo.Create(r.Context(), Course{
		CompanyID:    membership.CompanyID,
		Name:         req.Name,
		DisciplineID: req.DisciplineID,
		LevelID:      req.LevelID,
		TeacherID:    req.TeacherID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, course)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceCourse) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := parseCourseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req courseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.Update(r.Context(), Course{
		ID:           id,
		CompanyID:    membership.CompanyID,
		Name:         req.Name,
		DisciplineID: req.DisciplineID,
		LevelID:      req.LevelID,
		TeacherID:    req.TeacherID,
	}); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceCourse) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := parseCourseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.Delete(r.Context(), membership.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadReference):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "referenced discipline, level or teacher not found")
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("courses repository", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseCourseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
}

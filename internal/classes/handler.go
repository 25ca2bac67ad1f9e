package classes

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

// Handler wires HTTP endpoints for classes and classrooms.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs the classes handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers class and classroom routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/classrooms", h.listClassrooms)
	r.Post("/classrooms", h.createClassroom)
	r.Put("/classrooms/{classroomID}", h.updateClassroom)
	r.Delete("/classrooms/{classroomID}", h.deleteClassroom)

	r.Get("/classes", h.listClasses)
	r.Get("/classes/{classID}", h.getClass)
	r.Post("/classes", h.createClass)
	r.Put("/classes/{classID}", h.updateClass)
	r.Delete("/classes/{classID}", h.deleteClass)
}

type classroomRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

type classRequest struct {
	Name        string `json:"name" validate:"required,min=1"`
	Year        int    `json:"year" validate:"required,gte=2000"`
	LevelID     int64  `json:"level_id" validate:"required,gt=0"`
	ClassroomID int64  `json:"classroom_id" validate:"required,gt=0"`
	TeacherID   int64  `json:"teacher_id" validate:"required,gt=0"`
}

func (h *Handler) listClassrooms(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceClassroom) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	rooms, err := h.repo.ListClassrooms(r.Context(), membership.CompanyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rooms)
}

func (h *Handler) createClassroom(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceClassroom) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req classroomRequest
	if !h.decode(w, r, &req) {
		return
	}
	room, err := h.repo.CreateClassroom(r.Context(), Classroom{
		CompanyID: membership.CompanyID,
		Name:      req.Name,
		Capacity:  req.Capacity,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, room)
}

func (h *Handler) updateClassroom(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceClassroom) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "classroomID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req classroomRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.repo.UpdateClassroom(r.Context(), Classroom{
		ID:        id,
		CompanyID: membership.CompanyID,
		Name:      req.Name,
		Capacity:  req.Capacity,
	}); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteClassroom(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceClassroom) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "classroomID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.DeleteClassroom(r.Context(), membership.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceClass) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	classes, err := h.repo.ListClasses(r.Context(), membership.CompanyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, classes)
}

func (h *Handler) getClass(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceClass) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "classID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	class, err := h.repo.GetClass(r.Context(), membership.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, class)
}

func (h *Handler) createClass(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceClass) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req classRequest
	if !h.decode(w, r, &req) {
		return
	}
	class, err := h.repo.CreateClass(r.Context(), Class{
		CompanyID:   membership.CompanyID,
		Name:        req.Name,
		Year:        req.Year,
		LevelID:     req.LevelID,
		ClassroomID: req.ClassroomID,
		TeacherID:   req.TeacherID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, class)
}

func (h *Handler) updateClass(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceClass) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "classID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req classRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.repo.UpdateClass(r.Context(), Class{
		ID:          id,
		CompanyID:   membership.CompanyID,
		Name:        req.Name,
		Year:        req.Year,
		LevelID:     req.LevelID,
		ClassroomID: req.ClassroomID,
		TeacherID:   req.TeacherID,
	}); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteClass(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceClass) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "classID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.DeleteClass(r.Context(), membership.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadReference):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "referenced level, classroom or teacher not found")
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("classes repository", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

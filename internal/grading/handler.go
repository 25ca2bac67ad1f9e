package grading

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/platform/httpx"
	"github.com/akademi-app/akademi/internal/shared"
)

// Handler wires HTTP endpoints for tasks, submissions and grades.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the grading handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers grading routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/classes/{classID}/tasks", h.listTasks)
	r.Post("/tasks", h.createTask)
	r.Get("/tasks/{taskID}", h.getTask)
	r.Put("/tasks/{taskID}", h.updateTask)
	r.Delete("/tasks/{taskID}", h.deleteTask)

	r.Post("/tasks/{taskID}/submissions", h.submit)
	r.Get("/tasks/{taskID}/submissions", h.listSubmissions)
	r.Get("/submissions", h.listOwnSubmissions)
	r.Get("/submissions/{submissionID}", h.getSubmission)

	r.Post("/submissions/{submissionID}/grade", h.grade)
	r.Put("/submissions/{submissionID}/grade", h.updateGrade)
	r.Get("/submissions/{submissionID}/grade", h.getGrade)
	r.Get("/grades", h.listOwnGrades)
}

type taskRequest struct {
	ClassID     int64  `json:"class_id" validate:"required,gt=0"`
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,min=1"`
	Description string `json:"description"`
	DueAt       string `json:"due_at" validate:"required"`
}

type updateTaskRequest struct {
	Title       string `json:"title" validate:"required,min=1"`
	Description string `json:"description"`
	DueAt       string `json:"due_at" validate:"required"`
}

type submitRequest struct {
	StudentID int64  `json:"student_id"`
	Content   string `json:"content" validate:"required,min=1"`
}

type gradeRequest struct {
	Score   float64 `json:"score" validate:"gte=0,lte=100"`
	Comment string  `json:"comment"`
}

// actorFrom builds the ownership-check view of the request identity.
func actorFrom(ev authz.Evaluator, m authz.Membership) Actor {
	return Actor{
		ID:      ev.ActorID(),
		Admin:   m.HasRole(authz.RoleAdmin),
		Teacher: m.HasRole(authz.RoleTeacher),
		Student: m.HasRole(authz.RoleStudent),
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	classID, err := pathID(r, "classID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	tasks, err := h.service.ListTasksByClass(r.Context(), membership.CompanyID, classID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tasks)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req taskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	task, err := h.service.CreateTask(r.Context(), actorFrom(ev, membership), Task{
		CompanyID:   membership.CompanyID,
		ClassID:     req.ClassID,
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		DueAt:       dueAt,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, task)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "taskID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	task, err := h.service.GetTask(r.Context(), membership.CompanyID, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "taskID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req updateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	task, err := h.service.UpdateTask(r.Context(), actorFrom(ev, membership), membership.CompanyID, id, req.Title, req.Description, dueAt)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionDelete, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "taskID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.DeleteTask(r.Context(), actorFrom(ev, membership), membership.CompanyID, id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionSubmit, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	studentID := req.StudentID
	if studentID == 0 {
		studentID = ev.ActorID()
	}
	sub, err := h.service.Submit(r.Context(), actorFrom(ev, membership), membership.CompanyID, taskID, studentID, req.Content)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	subs, err := h.service.ListSubmissionsByTask(r.Context(), actorFrom(ev, membership), membership.CompanyID, taskID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subs)
}

func (h *Handler) listOwnSubmissions(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	subs, err := h.service.ListOwnSubmissions(r.Context(), actorFrom(ev, membership), membership.CompanyID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subs)
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceTask) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "submissionID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sub, err := h.service.GetSubmission(r.Context(), actorFrom(ev, membership), membership.CompanyID, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) grade(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceGrade) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "submissionID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req gradeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	grade, err := h.service.GradeSubmission(r.Context(), actorFrom(ev, membership), membership.CompanyID, id, req.Score, req.Comment)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grade)
}

func (h *Handler) updateGrade(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceGrade) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "submissionID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req gradeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	grade, err := h.service.UpdateGrade(r.Context(), actorFrom(ev, membership), membership.CompanyID, id, req.Score, req.Comment)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grade)
}

func (h *Handler) getGrade(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceGrade) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "submissionID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	grade, err := h.service.GradeForSubmission(r.Context(), actorFrom(ev, membership), membership.CompanyID, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grade)
}

func (h *Handler) listOwnGrades(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceGrade) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	grades, err := h.service.ListOwnGrades(r.Context(), actorFrom(ev, membership), membership.CompanyID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grades)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotClassOwner), errors.Is(err, ErrNotOwnSubmission):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrDuplicateSubmission):
		httpx.Problem(w, http.StatusConflict, "Conflict", "task already submitted")
	case errors.Is(err, ErrAlreadyGraded):
		httpx.Problem(w, http.StatusConflict, "Conflict", "submission already graded")
	case errors.Is(err, ErrScoreRange):
		httpx.RespondError(w, httpx.ErrValidation)
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("grading service", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

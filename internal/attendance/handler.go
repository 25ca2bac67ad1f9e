package attendance

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

// Handler wires HTTP endpoints for attendance sheets.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs the attendance handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers attendance routes on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/classes/{classID}/attendance", h.listByClass)
	r.Post("/classes/{classID}/attendance", h.create)
	r.Get("/attendance/{sheetID}", h.get)
	r.Put("/attendance/{sheetID}", h.replaceEntries)
	r.Delete("/attendance/{sheetID}", h.remove)
}

type entryPayload struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required"`
	Note      string `json:"note"`
}

type createSheetRequest struct {
	Date    string         `json:"date" validate:"required"`
	Entries []entryPayload `json:"entries" validate:"required,min=1,dive"`
}

type replaceEntriesRequest struct {
	Entries []entryPayload `json:"entries" validate:"required,min=1,dive"`
}

func (h *Handler) listByClass(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceAttendance) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	classID, err := pathID(r, "classID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sheets, err := h.repo.ListByClass(r.Context(), membership.CompanyID, classID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sheets)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceAttendance) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "sheetID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sheet, err := h.repo.Get(r.Context(), membership.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	// Students see only their own row on a sheet.
	if studentOnly(membership) {
		sheet.Entries = ownEntries(sheet.Entries, ev.ActorID())
	}
	httpx.JSON(w, http.StatusOK, sheet)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionCreate, authz.ResourceAttendance) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	classID, err := pathID(r, "classID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if !h.allowClass(w, r, ev, membership, classID) {
		return
	}
	var req createSheetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	entries, err := toEntries(req.Entries)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sheet, err := h.repo.Create(r.Context(), Sheet{
		CompanyID: membership.CompanyID,
		ClassID:   classID,
		Date:      date,
		Entries:   entries,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sheet)
}

func (h *Handler) replaceEntries(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionUpdate, authz.ResourceAttendance) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "sheetID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sheet, err := h.repo.Get(r.Context(), membership.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !h.allowClass(w, r, ev, membership, sheet.ClassID) {
		return
	}
	var req replaceEntriesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	entries, err := toEntries(req.Entries)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.repo.ReplaceEntries(r.Context(), membership.CompanyID, id, entries); err != nil {
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
	if ev.Cannot(authz.ActionDelete, authz.ResourceAttendance) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "sheetID")
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

// allowClass applies the owns-class refinement: a teacher without the admin
// role may only touch sheets of classes they are responsible for.
func (h *Handler) allowClass(w http.ResponseWriter, r *http.Request, ev authz.Evaluator, membership authz.Membership, classID int64) bool {
	if membership.HasRole(authz.RoleAdmin) {
		return true
	}
	teacherID, err := h.repo.ClassTeacher(r.Context(), membership.CompanyID, classID)
	if err != nil {
		h.respondError(w, err)
		return false
	}
	if teacherID != ev.ActorID() {
		httpx.RespondError(w, httpx.ErrForbidden)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateSheet):
		httpx.Problem(w, http.StatusConflict, "Conflict", "attendance already recorded for class and date")
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("attendance repository", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func studentOnly(m authz.Membership) bool {
	return m.HasRole(authz.RoleStudent) && !m.HasRole(authz.RoleAdmin) && !m.HasRole(authz.RoleTeacher)
}

func ownEntries(entries []Entry, studentID int64) []Entry {
	var own []Entry
	for _, e := range entries {
		if e.StudentID == studentID {
			own = append(own, e)
		}
	}
	return own
}

func toEntries(payload []entryPayload) ([]Entry, error) {
	entries := make([]Entry, len(payload))
	for i, p := range payload {
		status := EntryStatus(p.Status)
		if !ValidStatus(status) {
			return nil, ErrBadStatus
		}
		entries[i] = Entry{StudentID: p.StudentID, Status: status, Note: p.Note}
	}
	return entries, nil
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

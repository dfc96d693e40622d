package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"time"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/auth"
	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/service"
)

// ActivityHandler exposes the activity log and streak summary under
// /api/activities, behind RequireAuth.
type ActivityHandler struct {
	activitySvc *service.ActivityService
	logger      *slog.Logger
}

func NewActivityHandler(activitySvc *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc, logger: logger}
}

type activityRequest struct {
	Name  string     `json:"name"`
	Notes string     `json:"notes"`
	Date  *time.Time `json:"date"`
}

// HandleLog records an activity. HTTP: POST /api/activities
func (h *ActivityHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	activity := &model.Activity{
		Name:  req.Name,
		Notes: req.Notes,
	}
	if req.Date != nil {
		activity.Date = *req.Date
	}

	logged, err := h.activitySvc.Log(r.Context(), userID, activity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "activity logged", logged)
}

// HandleList lists activities, newest first. HTTP: GET /api/activities
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	activities, err := h.activitySvc.List(r.Context(), userID, listOptions(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ok", activities)
}

// HandleDelete removes an activity. HTTP: DELETE /api/activities/{id}
func (h *ActivityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.activitySvc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "activity deleted", nil)
}

// HandleStreak returns the computed streak summary.
// HTTP: GET /api/activities/streak
func (h *ActivityHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	streak, err := h.activitySvc.Streak(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ok", streak)
}

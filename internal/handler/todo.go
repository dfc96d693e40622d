package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"strconv"
	"time"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/auth"
	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/repository"
	"github.com/nahiyan/tasktrail/internal/service"
)

// TodoHandler exposes per-user todo CRUD under /api/todos. All routes sit
// behind RequireAuth; the owner is always the authenticated user.
type TodoHandler struct {
	todoSvc *service.TodoService
	logger  *slog.Logger
}

func NewTodoHandler(todoSvc *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todoSvc: todoSvc, logger: logger}
}

type todoRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
}

// HandleCreate creates a todo. HTTP: POST /api/todos
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	var req todoRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	todo, err := h.todoSvc.Create(r.Context(), userID, &model.Todo{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "todo created", todo)
}

// HandleList lists the user's todos. HTTP: GET /api/todos?limit=&offset=
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	todos, err := h.todoSvc.List(r.Context(), userID, listOptions(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ok", todos)
}

// HandleGet returns a single todo. HTTP: GET /api/todos/{id}
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	todo, err := h.todoSvc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ok", todo)
}

// HandleUpdate replaces a todo's writable fields. HTTP: PUT /api/todos/{id}
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	var req todoRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	todo, err := h.todoSvc.Update(r.Context(), userID, chi.URLParam(r, "id"), &model.Todo{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "todo updated", todo)
}

// HandleDelete removes a todo. HTTP: DELETE /api/todos/{id}
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.todoSvc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "todo deleted", nil)
}

// listOptions reads limit/offset query params; the service clamps them.
func listOptions(r *http.Request) repository.ListOptions {
	opts := repository.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}
	return opts
}

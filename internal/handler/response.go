// Package handler parses HTTP requests, calls the service layer, and
// writes the response envelope. Nothing here touches the database.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nahiyan/tasktrail/internal/apperror"
)

// Envelope is the shape of every API response:
//
//	{"success": bool, "message": string, "data"?: {...},
//	 "error"?: string, "details"?: {field: message}}
//
// Details only ever carries field-level validation messages — never
// credentials, tokens, or internals.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		// Headers are already gone at this point; log and move on.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// writeError maps a service error onto the envelope and a status code.
// Anything outside the taxonomy becomes a generic 500; the raw error never
// reaches the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_failed"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrTokenExpired):
			status = http.StatusUnauthorized
			errorType = "token_expired"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		}

		writeJSON(w, status, Envelope{
			Success: false,
			Message: appErr.Message,
			Error:   errorType,
			Details: appErr.Details,
		})
		return
	}

	logger.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "an internal error occurred",
		Error:   "internal_error",
	})
}

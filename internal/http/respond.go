package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/ride-hailing/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain error kinds onto HTTP statuses. Failures are
// terminal for the request; nothing here retries.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrDuplicate),
		errors.Is(err, models.ErrInvalidTransition):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrAuthFailure):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", models.ErrValidation)
	}
	return nil
}

package httpapi

import (
	"errors"
	"net/http"

	"zoocore/internal/blob"
	"zoocore/pkg/domain"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var violation domain.RuleViolationError
	switch {
	case domain.IsNotFound(err), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrAnimalHoused),
		errors.Is(err, domain.ErrEnclosureOccupied),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrFeedingCompleted),
		errors.Is(err, blob.ErrExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidEnclosure),
		errors.Is(err, domain.ErrInvalidAnimal),
		errors.Is(err, domain.ErrInvalidFeeding):
		return http.StatusBadRequest
	case errors.As(err, &violation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		writeJSON(w, status, map[string]any{"error": err.Error(), "violations": violation.Result.Violations})
		return
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

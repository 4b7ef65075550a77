package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"zoocore/internal/core"
	"zoocore/pkg/domain"
)

type feedingRequest struct {
	ID       string `json:"id"`
	AnimalID string `json:"animal_id"`
	Food     string `json:"food"`
	FeedAt   string `json:"feed_at"`
}

type rescheduleRequest struct {
	FeedAt string `json:"feed_at"`
}

type feedingResponse struct {
	Feeding    domain.FeedingSchedule `json:"feeding"`
	Violations []domain.Violation     `json:"violations,omitempty"`
}

func parseFeedAt(raw string) (time.Time, error) {
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: feed_at %q is not an RFC 3339 timestamp", domain.ErrInvalidFeeding, raw)
	}
	return at.UTC(), nil
}

func (h *Handler) handleListFeedings(w http.ResponseWriter, r *http.Request) {
	filter := core.FeedingFilter{AnimalID: r.URL.Query().Get("animal_id")}
	if raw := r.URL.Query().Get("due_by"); raw != "" {
		at, err := parseFeedAt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_by must be an RFC 3339 timestamp")
			return
		}
		filter.DueBy = at
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedings": h.service.ListFeedings(r.Context(), filter)})
}

func (h *Handler) handleScheduleFeeding(w http.ResponseWriter, r *http.Request) {
	var req feedingRequest
	if err := decodeBody(r, &req); err != nil || req.AnimalID == "" {
		writeError(w, http.StatusBadRequest, "animal_id is required")
		return
	}
	at, err := parseFeedAt(req.FeedAt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, res, err := h.service.ScheduleFeeding(r.Context(), domain.FeedingSchedule{
		Base:     domain.Base{ID: req.ID},
		AnimalID: req.AnimalID,
		Food:     req.Food,
		FeedAt:   at,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedingResponse{Feeding: created, Violations: res.Violations})
}

func (h *Handler) handleGetFeeding(w http.ResponseWriter, r *http.Request) {
	feeding, err := h.service.GetFeeding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedingResponse{Feeding: feeding})
}

func (h *Handler) handleRescheduleFeeding(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decodeBody(r, &req); err != nil || req.FeedAt == "" {
		writeError(w, http.StatusBadRequest, "feed_at is required")
		return
	}
	at, err := parseFeedAt(req.FeedAt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	feeding, res, err := h.service.RescheduleFeeding(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedingResponse{Feeding: feeding, Violations: res.Violations})
}

func (h *Handler) handleCompleteFeeding(w http.ResponseWriter, r *http.Request) {
	feeding, res, err := h.service.CompleteFeeding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedingResponse{Feeding: feeding, Violations: res.Violations})
}

func (h *Handler) handleCancelFeeding(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.CancelFeeding(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events := h.events.Recent(limit)
	if events == nil {
		events = []core.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

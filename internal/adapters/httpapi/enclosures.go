package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"zoocore/pkg/domain"
)

type enclosureRequest struct {
	ID       string               `json:"id"`
	Type     domain.EnclosureType `json:"type"`
	AreaM2   float64              `json:"area_m2"`
	Capacity int                  `json:"capacity"`
}

type enclosureResponse struct {
	Enclosure  *domain.Enclosure  `json:"enclosure"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func (h *Handler) handleListEnclosures(w http.ResponseWriter, r *http.Request) {
	enclosures := h.service.ListEnclosures(r.Context())
	if enclosures == nil {
		enclosures = []*domain.Enclosure{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"enclosures": enclosures})
}

func (h *Handler) handleCreateEnclosure(w http.ResponseWriter, r *http.Request) {
	var req enclosureRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid enclosure payload")
		return
	}
	enc, res, err := h.service.CreateEnclosure(r.Context(), domain.EnclosureState{
		ID:       req.ID,
		Type:     req.Type,
		AreaM2:   req.AreaM2,
		Capacity: req.Capacity,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, enclosureResponse{Enclosure: enc, Violations: res.Violations})
}

func (h *Handler) handleGetEnclosure(w http.ResponseWriter, r *http.Request) {
	enc, err := h.service.GetEnclosure(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enclosureResponse{Enclosure: enc})
}

func (h *Handler) handleDeleteEnclosure(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeleteEnclosure(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCleanEnclosure(w http.ResponseWriter, r *http.Request) {
	enc, res, err := h.service.CleanEnclosure(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enclosureResponse{Enclosure: enc, Violations: res.Violations})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statistics": stats})
}

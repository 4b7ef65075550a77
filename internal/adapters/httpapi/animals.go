package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"zoocore/pkg/domain"
)

const birthDateLayout = "2006-01-02"

type animalRequest struct {
	ID           string              `json:"id"`
	Species      string              `json:"species"`
	Name         string              `json:"name"`
	BirthDate    string              `json:"birth_date"`
	Gender       domain.Gender       `json:"gender"`
	FavoriteFood string              `json:"favorite_food"`
	Status       domain.AnimalStatus `json:"status"`
	EnclosureID  string              `json:"enclosure_id"`
}

type placementRequest struct {
	EnclosureID string `json:"enclosure_id"`
}

type statusRequest struct {
	Status domain.AnimalStatus `json:"status"`
}

type animalResponse struct {
	Animal     domain.Animal      `json:"animal"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// toAnimal accepts either a plain date or an RFC 3339 timestamp for the birth date.
func (req animalRequest) toAnimal() (domain.Animal, error) {
	animal := domain.Animal{
		Base:         domain.Base{ID: req.ID},
		Species:      strings.TrimSpace(req.Species),
		Name:         strings.TrimSpace(req.Name),
		Gender:       req.Gender,
		FavoriteFood: req.FavoriteFood,
		Status:       req.Status,
	}
	if req.BirthDate != "" {
		birth, err := time.Parse(birthDateLayout, req.BirthDate)
		if err != nil {
			birth, err = time.Parse(time.RFC3339, req.BirthDate)
		}
		if err != nil {
			return domain.Animal{}, fmt.Errorf("%w: birth_date %q is not a date", domain.ErrInvalidAnimal, req.BirthDate)
		}
		animal.BirthDate = birth.UTC()
	}
	if req.EnclosureID != "" {
		target := req.EnclosureID
		animal.EnclosureID = &target
	}
	return animal, nil
}

func (h *Handler) handleListAnimals(w http.ResponseWriter, r *http.Request) {
	animals := h.service.ListAnimals(r.Context())
	if animals == nil {
		animals = []domain.Animal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"animals": animals})
}

func (h *Handler) handleCreateAnimal(w http.ResponseWriter, r *http.Request) {
	var req animalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid animal payload")
		return
	}
	animal, err := req.toAnimal()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, res, err := h.service.CreateAnimal(r.Context(), animal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, animalResponse{Animal: created, Violations: res.Violations})
}

func (h *Handler) handleGetAnimal(w http.ResponseWriter, r *http.Request) {
	animal, err := h.service.GetAnimal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, animalResponse{Animal: animal})
}

func (h *Handler) handleDeleteAnimal(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeleteAnimal(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdmitAnimal(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, h.service.AdmitAnimal)
}

func (h *Handler) handleTransferAnimal(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, h.service.TransferAnimal)
}

type placeFunc func(ctx context.Context, animalID, enclosureID string) (domain.Animal, domain.Result, error)

func (h *Handler) place(w http.ResponseWriter, r *http.Request, fn placeFunc) {
	var req placementRequest
	if err := decodeBody(r, &req); err != nil || req.EnclosureID == "" {
		writeError(w, http.StatusBadRequest, "enclosure_id is required")
		return
	}
	animal, res, err := fn(r.Context(), chi.URLParam(r, "id"), req.EnclosureID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, animalResponse{Animal: animal, Violations: res.Violations})
}

func (h *Handler) handleReleaseAnimal(w http.ResponseWriter, r *http.Request) {
	animal, res, err := h.service.ReleaseAnimal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, animalResponse{Animal: animal, Violations: res.Violations})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	animal, res, err := h.service.UpdateAnimalStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, animalResponse{Animal: animal, Violations: res.Violations})
}

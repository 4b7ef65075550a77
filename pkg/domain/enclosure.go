package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Enclosure is a physical containment unit holding the identifiers of its
// resident animals. The resident count never exceeds Capacity once a method
// returns; all methods are safe for concurrent use.
type Enclosure struct {
	mu            sync.Mutex
	id            string
	kind          EnclosureType
	areaM2        float64
	capacity      int
	animals       []string
	createdAt     time.Time
	updatedAt     time.Time
	lastCleanedAt *time.Time
}

// EnclosureState is the plain, serialisable form of an Enclosure used by
// persistence layers and API responses.
type EnclosureState struct {
	ID            string        `json:"id"`
	Type          EnclosureType `json:"type"`
	AreaM2        float64       `json:"area_m2"`
	Capacity      int           `json:"capacity"`
	Animals       []string      `json:"animals"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	LastCleanedAt *time.Time    `json:"last_cleaned_at,omitempty"`
}

// NewEnclosure constructs an empty enclosure. Area and capacity must be
// positive and the type must be a known classification.
func NewEnclosure(id string, kind EnclosureType, areaM2 float64, capacity int) (*Enclosure, error) {
	if err := validateEnclosure(id, kind, areaM2, capacity); err != nil {
		return nil, err
	}
	return &Enclosure{
		id:       id,
		kind:     kind,
		areaM2:   areaM2,
		capacity: capacity,
		animals:  []string{},
	}, nil
}

// RestoreEnclosure rebuilds an enclosure from persisted state, rejecting
// states that break the capacity invariant.
func RestoreEnclosure(state EnclosureState) (*Enclosure, error) {
	e, err := NewEnclosure(state.ID, state.Type, state.AreaM2, state.Capacity)
	if err != nil {
		return nil, err
	}
	if len(state.Animals) > state.Capacity {
		return nil, fmt.Errorf("%w: enclosure %s restores %d residents over capacity %d", ErrCapacityExceeded, state.ID, len(state.Animals), state.Capacity)
	}
	seen := make(map[string]struct{}, len(state.Animals))
	for _, id := range state.Animals {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		e.animals = append(e.animals, id)
	}
	e.createdAt = state.CreatedAt
	e.updatedAt = state.UpdatedAt
	if state.LastCleanedAt != nil {
		ts := *state.LastCleanedAt
		e.lastCleanedAt = &ts
	}
	return e, nil
}

func validateEnclosure(id string, kind EnclosureType, areaM2 float64, capacity int) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id is required", ErrInvalidEnclosure)
	case !kind.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEnclosure, kind)
	case !(areaM2 > 0):
		return fmt.Errorf("%w: area must be positive, got %v", ErrInvalidEnclosure, areaM2)
	case capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidEnclosure, capacity)
	}
	return nil
}

// ID returns the immutable enclosure identifier.
func (e *Enclosure) ID() string { return e.id }

// Type returns the enclosure classification.
func (e *Enclosure) Type() EnclosureType { return e.kind }

// AreaM2 returns the usable area in square meters.
func (e *Enclosure) AreaM2() float64 { return e.areaM2 }

// Capacity returns the maximum number of residents.
func (e *Enclosure) Capacity() int { return e.capacity }

// Animals returns a copy of the resident identifiers in insertion order.
func (e *Enclosure) Animals() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.animals)
}

// Count returns the current number of residents.
func (e *Enclosure) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.animals)
}

// Contains reports whether the animal identifier is a resident.
func (e *Enclosure) Contains(animalID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Contains(e.animals, animalID)
}

// CanAdd reports whether another animal fits.
func (e *Enclosure) CanAdd() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canAddLocked()
}

func (e *Enclosure) canAddLocked() bool {
	return len(e.animals) < e.capacity
}

// AddAnimal records the animal as a resident. The capacity check and the
// append happen under one lock; on ErrCapacityExceeded the resident set is
// untouched. The animal's own EnclosureID is not modified. A full enclosure
// always refuses, even for a current resident; otherwise re-adding a resident
// is a no-op.
func (e *Enclosure) AddAnimal(animal Animal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canAddLocked() {
		return fmt.Errorf("%w: enclosure %s holds %d/%d animals", ErrCapacityExceeded, e.id, len(e.animals), e.capacity)
	}
	if slices.Contains(e.animals, animal.ID) {
		return nil
	}
	e.animals = append(e.animals, animal.ID)
	return nil
}

// RemoveAnimal drops the animal from the resident set. Removing an animal
// that is not a resident does nothing.
func (e *Enclosure) RemoveAnimal(animal Animal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.animals, animal.ID); i >= 0 {
		e.animals = slices.Delete(e.animals, i, i+1)
	}
}

// Clean marks the enclosure as cleaned at the given time. Occupancy is unaffected.
func (e *Enclosure) Clean(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if at.IsZero() {
		return
	}
	e.lastCleanedAt = &at
}

// LastCleanedAt returns the last cleaning time, if any.
func (e *Enclosure) LastCleanedAt() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastCleanedAt == nil {
		return time.Time{}, false
	}
	return *e.lastCleanedAt, true
}

// CreatedAt returns the creation timestamp assigned by the store.
func (e *Enclosure) CreatedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createdAt
}

// UpdatedAt returns the last modification timestamp assigned by the store.
func (e *Enclosure) UpdatedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updatedAt
}

// Touch stamps the enclosure with a modification time. The creation time is
// set on the first call only. Persistence layers call it on every write.
func (e *Enclosure) Touch(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.createdAt.IsZero() {
		e.createdAt = now
	}
	e.updatedAt = now
}

// State returns a detached copy of the enclosure's full state.
func (e *Enclosure) State() EnclosureState {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := EnclosureState{
		ID:        e.id,
		Type:      e.kind,
		AreaM2:    e.areaM2,
		Capacity:  e.capacity,
		Animals:   slices.Clone(e.animals),
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
	}
	if state.Animals == nil {
		state.Animals = []string{}
	}
	if e.lastCleanedAt != nil {
		ts := *e.lastCleanedAt
		state.LastCleanedAt = &ts
	}
	return state
}

// Clone returns an independent copy of the enclosure.
func (e *Enclosure) Clone() *Enclosure {
	state := e.State()
	return &Enclosure{
		id:            state.ID,
		kind:          state.Type,
		areaM2:        state.AreaM2,
		capacity:      state.Capacity,
		animals:       state.Animals,
		createdAt:     state.CreatedAt,
		updatedAt:     state.UpdatedAt,
		lastCleanedAt: state.LastCleanedAt,
	}
}

// MarshalJSON serialises the enclosure through EnclosureState.
func (e *Enclosure) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.State())
}

// UnmarshalJSON hydrates the enclosure and validates the decoded state.
func (e *Enclosure) UnmarshalJSON(data []byte) error {
	var state EnclosureState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	restored, err := RestoreEnclosure(state)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = restored.id
	e.kind = restored.kind
	e.areaM2 = restored.areaM2
	e.capacity = restored.capacity
	e.animals = restored.animals
	e.createdAt = restored.createdAt
	e.updatedAt = restored.updatedAt
	e.lastCleanedAt = restored.lastCleanedAt
	return nil
}

// Package domain defines the zoo entities, value types, and rule evaluation
// primitives used by zoocore.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityEnclosure identifies an enclosure record.
	EntityEnclosure EntityType = "enclosure"
	// EntityAnimal identifies an animal record.
	EntityAnimal EntityType = "animal"
	// EntityFeeding identifies a feeding schedule record.
	EntityFeeding EntityType = "feeding"
)

// EnclosureType classifies the containment an enclosure provides.
type EnclosureType string

// Closed set of enclosure classifications.
const (
	EnclosureCarnivore EnclosureType = "carnivore"
	EnclosureHerbivore EnclosureType = "herbivore"
	EnclosureAviary    EnclosureType = "aviary"
	EnclosureAquatic   EnclosureType = "aquatic"
	EnclosureReptile   EnclosureType = "reptile"
)

var enclosureTypes = map[EnclosureType]struct{}{
	EnclosureCarnivore: {},
	EnclosureHerbivore: {},
	EnclosureAviary:    {},
	EnclosureAquatic:   {},
	EnclosureReptile:   {},
}

// Valid reports whether t is one of the known enclosure classifications.
func (t EnclosureType) Valid() bool {
	_, ok := enclosureTypes[t]
	return ok
}

// EnclosureTypes returns the known classifications in declaration order.
func EnclosureTypes() []EnclosureType {
	return []EnclosureType{EnclosureCarnivore, EnclosureHerbivore, EnclosureAviary, EnclosureAquatic, EnclosureReptile}
}

// Gender of an animal.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Valid reports whether g is a known gender value.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnknown:
		return true
	default:
		return false
	}
}

// AnimalStatus captures the health state of an animal.
type AnimalStatus string

const (
	AnimalHealthy     AnimalStatus = "healthy"
	AnimalSick        AnimalStatus = "sick"
	AnimalQuarantined AnimalStatus = "quarantined"
)

// Valid reports whether s is a known status value.
func (s AnimalStatus) Valid() bool {
	switch s {
	case AnimalHealthy, AnimalSick, AnimalQuarantined:
		return true
	default:
		return false
	}
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Animal represents an individual animal living in the zoo. EnclosureID is a
// lookup reference only; the enclosure's resident set is the other half of
// the relation and the service layer keeps both in agreement.
type Animal struct {
	Base
	Species      string       `json:"species"`
	Name         string       `json:"name"`
	BirthDate    time.Time    `json:"birth_date"`
	Gender       Gender       `json:"gender"`
	FavoriteFood string       `json:"favorite_food"`
	Status       AnimalStatus `json:"status"`
	EnclosureID  *string      `json:"enclosure_id"`
}

// NewAnimal builds a validated animal. An empty enclosureID leaves the animal unhoused.
func NewAnimal(id, species, name string, birth time.Time, gender Gender, food string, status AnimalStatus, enclosureID string) (Animal, error) {
	a := Animal{
		Base:         Base{ID: id},
		Species:      species,
		Name:         name,
		BirthDate:    birth,
		Gender:       gender,
		FavoriteFood: food,
		Status:       status,
	}
	if enclosureID != "" {
		a.EnclosureID = &enclosureID
	}
	if err := a.Validate(); err != nil {
		return Animal{}, err
	}
	return a, nil
}

// Validate checks required attributes and enumerations. Empty gender and
// status are normalised to unknown and healthy.
func (a *Animal) Validate() error {
	if a.Species == "" {
		return fmt.Errorf("%w: species is required", ErrInvalidAnimal)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAnimal)
	}
	if a.Gender == "" {
		a.Gender = GenderUnknown
	}
	if !a.Gender.Valid() {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidAnimal, a.Gender)
	}
	if a.Status == "" {
		a.Status = AnimalHealthy
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAnimal, a.Status)
	}
	return nil
}

// HousedIn returns the enclosure identifier the animal references, if any.
func (a Animal) HousedIn() (string, bool) {
	if a.EnclosureID == nil || *a.EnclosureID == "" {
		return "", false
	}
	return *a.EnclosureID, true
}

// Clone returns a deep copy of the animal.
func (a Animal) Clone() Animal {
	cp := a
	if a.EnclosureID != nil {
		id := *a.EnclosureID
		cp.EnclosureID = &id
	}
	return cp
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

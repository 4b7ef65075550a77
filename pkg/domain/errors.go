package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when an enclosure already holds as many
	// animals as its capacity allows. Retrying fails the same way until a
	// resident is removed.
	ErrCapacityExceeded = errors.New("enclosure is full")
	// ErrInvalidEnclosure reports rejected enclosure attributes.
	ErrInvalidEnclosure = errors.New("invalid enclosure")
	// ErrInvalidAnimal reports rejected animal attributes.
	ErrInvalidAnimal = errors.New("invalid animal")
	// ErrEnclosureOccupied is returned when deleting an enclosure that still has residents.
	ErrEnclosureOccupied = errors.New("enclosure still has residents")
	// ErrAnimalHoused is returned when admitting an animal that already lives in an enclosure.
	ErrAnimalHoused = errors.New("animal is already housed")
	// ErrInvalidFeeding reports rejected feeding schedule attributes.
	ErrInvalidFeeding = errors.New("invalid feeding schedule")
	// ErrFeedingCompleted is returned when changing a feeding that already happened.
	ErrFeedingCompleted = errors.New("feeding already completed")
	// ErrAlreadyExists is returned when creating a record whose identifier is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

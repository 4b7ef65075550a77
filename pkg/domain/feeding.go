package domain

import (
	"fmt"
	"time"
)

// FeedingSchedule plans one feeding of an animal. A schedule is pending until
// CompletedAt is set; completed schedules are kept as history.
type FeedingSchedule struct {
	Base
	AnimalID    string     `json:"animal_id"`
	Food        string     `json:"food"`
	FeedAt      time.Time  `json:"feed_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate checks the attributes every stored schedule must carry.
func (f FeedingSchedule) Validate() error {
	switch {
	case f.AnimalID == "":
		return fmt.Errorf("%w: animal_id is required", ErrInvalidFeeding)
	case f.Food == "":
		return fmt.Errorf("%w: food is required", ErrInvalidFeeding)
	case f.FeedAt.IsZero():
		return fmt.Errorf("%w: feed_at is required", ErrInvalidFeeding)
	}
	return nil
}

// Completed reports whether the feeding has been carried out.
func (f FeedingSchedule) Completed() bool { return f.CompletedAt != nil }

// Due reports whether the feeding is pending at or before at.
func (f FeedingSchedule) Due(at time.Time) bool {
	return !f.Completed() && !f.FeedAt.After(at)
}

// Reschedule moves a pending feeding to a new time.
func (f *FeedingSchedule) Reschedule(at time.Time) error {
	if f.Completed() {
		return fmt.Errorf("%w: feeding %s", ErrFeedingCompleted, f.ID)
	}
	if at.IsZero() {
		return fmt.Errorf("%w: feed_at is required", ErrInvalidFeeding)
	}
	f.FeedAt = at
	return nil
}

// Complete marks the feeding as done at the given time. Completing an already
// completed feeding keeps the original timestamp.
func (f *FeedingSchedule) Complete(at time.Time) {
	if f.Completed() {
		return
	}
	f.CompletedAt = &at
}

// Clone returns a deep copy of the schedule.
func (f FeedingSchedule) Clone() FeedingSchedule {
	cp := f
	if f.CompletedAt != nil {
		ts := *f.CompletedAt
		cp.CompletedAt = &ts
	}
	return cp
}

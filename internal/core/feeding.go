package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zoocore/pkg/domain"
)

// FeedingFilter narrows ListFeedings. Zero values match everything.
type FeedingFilter struct {
	AnimalID string
	// DueBy keeps pending feedings planned at or before the given time.
	DueBy time.Time
}

func (f FeedingFilter) matches(feeding domain.FeedingSchedule) bool {
	if f.AnimalID != "" && feeding.AnimalID != f.AnimalID {
		return false
	}
	if !f.DueBy.IsZero() && !feeding.Due(f.DueBy) {
		return false
	}
	return true
}

// ScheduleFeeding plans a feeding for an existing animal. An empty food
// defaults to the animal's favourite food.
func (s *Service) ScheduleFeeding(ctx context.Context, input domain.FeedingSchedule) (domain.FeedingSchedule, domain.Result, error) {
	if input.ID == "" {
		input.ID = s.ids.NewID()
	}
	id := input.ID
	var created domain.FeedingSchedule
	res, err := s.run(ctx, OpScheduleFeeding, &id, func(tx domain.Transaction) error {
		animal, ok := tx.FindAnimal(input.AnimalID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityAnimal, ID: input.AnimalID}
		}
		input.Food = strings.TrimSpace(input.Food)
		if input.Food == "" {
			input.Food = animal.FavoriteFood
		}
		if input.CompletedAt != nil {
			return fmt.Errorf("%w: a new feeding cannot be completed", domain.ErrInvalidFeeding)
		}
		input.FeedAt = input.FeedAt.UTC()
		var err error
		created, err = tx.CreateFeeding(input)
		return err
	})
	if err == nil {
		s.publish(ctx, Event{Type: EventFeedingScheduled, AnimalID: created.AnimalID, FeedingID: created.ID})
	}
	return created, res, err
}

// GetFeeding returns the feeding schedule with the given identifier.
func (s *Service) GetFeeding(ctx context.Context, id string) (domain.FeedingSchedule, error) {
	var feeding domain.FeedingSchedule
	err := s.observe(ctx, OpGetFeeding, &id, func(context.Context) error {
		found, ok := s.store.GetFeeding(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityFeeding, ID: id}
		}
		feeding = found
		return nil
	})
	return feeding, err
}

// ListFeedings returns the matching schedules ordered by feeding time.
func (s *Service) ListFeedings(ctx context.Context, filter FeedingFilter) []domain.FeedingSchedule {
	out := []domain.FeedingSchedule{}
	_ = s.observe(ctx, OpListFeedings, nil, func(context.Context) error {
		for _, feeding := range s.store.ListFeedings() {
			if filter.matches(feeding) {
				out = append(out, feeding)
			}
		}
		return nil
	})
	return out
}

// RescheduleFeeding moves a pending feeding to a new time.
func (s *Service) RescheduleFeeding(ctx context.Context, id string, at time.Time) (domain.FeedingSchedule, domain.Result, error) {
	var updated domain.FeedingSchedule
	res, err := s.run(ctx, OpRescheduleFeeding, &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateFeeding(id, func(f *domain.FeedingSchedule) error {
			return f.Reschedule(at.UTC())
		})
		return err
	})
	return updated, res, err
}

// CompleteFeeding marks a feeding as carried out now. Completing a feeding
// twice keeps the first completion time and publishes no second event.
func (s *Service) CompleteFeeding(ctx context.Context, id string) (domain.FeedingSchedule, domain.Result, error) {
	var completed domain.FeedingSchedule
	wasPending := false
	res, err := s.run(ctx, OpCompleteFeeding, &id, func(tx domain.Transaction) error {
		current, ok := tx.FindFeeding(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityFeeding, ID: id}
		}
		if current.Completed() {
			completed = current
			return nil
		}
		wasPending = true
		now := s.clock.Now().UTC()
		var err error
		completed, err = tx.UpdateFeeding(id, func(f *domain.FeedingSchedule) error {
			f.Complete(now)
			return nil
		})
		return err
	})
	if err == nil && wasPending {
		s.publish(ctx, Event{Type: EventFeedingCompleted, AnimalID: completed.AnimalID, FeedingID: completed.ID})
	}
	return completed, res, err
}

// CancelFeeding removes a feeding schedule.
func (s *Service) CancelFeeding(ctx context.Context, id string) (domain.Result, error) {
	return s.run(ctx, OpCancelFeeding, &id, func(tx domain.Transaction) error {
		return tx.DeleteFeeding(id)
	})
}

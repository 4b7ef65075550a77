package core

import (
	"context"

	"zoocore/pkg/domain"
)

// TypeOccupancy aggregates enclosures of one classification.
type TypeOccupancy struct {
	Enclosures int `json:"enclosures"`
	Capacity   int `json:"capacity"`
	Occupancy  int `json:"occupancy"`
}

// Statistics summarises the zoo population at a point in time.
type Statistics struct {
	TotalAnimals    int                                    `json:"total_animals"`
	TotalEnclosures int                                    `json:"total_enclosures"`
	TotalCapacity   int                                    `json:"total_capacity"`
	Occupancy       int                                    `json:"occupancy"`
	FreeSlots       int                                    `json:"free_slots"`
	UnhousedAnimals int                                    `json:"unhoused_animals"`
	SickAnimals     int                                    `json:"sick_animals"`
	ByType          map[domain.EnclosureType]TypeOccupancy `json:"by_type"`
	ByStatus        map[domain.AnimalStatus]int            `json:"by_status"`
}

// Statistics computes population totals from a consistent snapshot.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	err := s.observe(ctx, OpStatistics, nil, func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			stats = computeStatistics(view)
			return nil
		})
	})
	return stats, err
}

func computeStatistics(view domain.RuleView) Statistics {
	stats := Statistics{
		ByType:   make(map[domain.EnclosureType]TypeOccupancy),
		ByStatus: make(map[domain.AnimalStatus]int),
	}
	for _, enc := range view.ListEnclosures() {
		count := enc.Count()
		stats.TotalEnclosures++
		stats.TotalCapacity += enc.Capacity()
		stats.Occupancy += count
		t := stats.ByType[enc.Type()]
		t.Enclosures++
		t.Capacity += enc.Capacity()
		t.Occupancy += count
		stats.ByType[enc.Type()] = t
	}
	stats.FreeSlots = stats.TotalCapacity - stats.Occupancy
	for _, animal := range view.ListAnimals() {
		stats.TotalAnimals++
		stats.ByStatus[animal.Status]++
		if animal.Status == domain.AnimalSick {
			stats.SickAnimals++
		}
		if _, housed := animal.HousedIn(); !housed {
			stats.UnhousedAnimals++
		}
	}
	return stats
}

// Population pairs the enclosures with the statistics computed from the same
// snapshot.
type Population struct {
	Enclosures []*domain.Enclosure
	Statistics Statistics
}

// Population reads every enclosure and the population totals from one
// consistent snapshot.
func (s *Service) Population(ctx context.Context) (Population, error) {
	var pop Population
	err := s.observe(ctx, OpPopulation, nil, func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			pop.Enclosures = view.ListEnclosures()
			pop.Statistics = computeStatistics(view)
			return nil
		})
	})
	return pop, err
}

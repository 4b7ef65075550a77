package main

import (
	"context"
	"fmt"
	"time"

	"zoocore/internal/core"
	"zoocore/pkg/domain"
)

// seedDemo populates an empty zoo with one carnivore enclosure housing Simba
// the lion. A store that already holds records is left untouched.
func seedDemo(ctx context.Context, svc *core.Service, logger core.Logger) error {
	if len(svc.ListEnclosures(ctx)) > 0 || len(svc.ListAnimals(ctx)) > 0 {
		logger.Debug("demo seed skipped", "reason", "store not empty")
		return nil
	}
	enclosure, _, err := svc.CreateEnclosure(ctx, domain.EnclosureState{
		Type:     domain.EnclosureCarnivore,
		AreaM2:   100,
		Capacity: 2,
	})
	if err != nil {
		return fmt.Errorf("seed enclosure: %w", err)
	}
	lion, err := domain.NewAnimal("", "Lion", "Simba",
		time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC),
		domain.GenderMale, "meat", domain.AnimalHealthy, enclosure.ID())
	if err != nil {
		return fmt.Errorf("seed animal: %w", err)
	}
	created, _, err := svc.CreateAnimal(ctx, lion)
	if err != nil {
		return fmt.Errorf("seed animal: %w", err)
	}
	logger.Info("demo data seeded", "enclosure_id", enclosure.ID(), "animal_id", created.ID)
	return nil
}

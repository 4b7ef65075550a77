package core

import (
	"context"
	"fmt"

	"zoocore/pkg/domain"
)

// NewResidencyConsistencyRule returns a rule that blocks commits where an
// animal's enclosure reference and the enclosure resident sets disagree.
func NewResidencyConsistencyRule() domain.Rule {
	return residencyConsistencyRule{}
}

type residencyConsistencyRule struct{}

func (residencyConsistencyRule) Name() string { return "residency_consistency" }

func (r residencyConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	residentOf := make(map[string]string)
	for _, enc := range view.ListEnclosures() {
		for _, animalID := range enc.Animals() {
			if other, dup := residentOf[animalID]; dup {
				res.Violations = append(res.Violations, r.violation(domain.EntityAnimal, animalID,
					fmt.Sprintf("animal %s listed in enclosures %s and %s", animalID, other, enc.ID())))
				continue
			}
			residentOf[animalID] = enc.ID()
			animal, ok := view.FindAnimal(animalID)
			if !ok {
				res.Violations = append(res.Violations, r.violation(domain.EntityEnclosure, enc.ID(),
					fmt.Sprintf("enclosure %s lists unknown animal %s", enc.ID(), animalID)))
				continue
			}
			if ref, housed := animal.HousedIn(); !housed || ref != enc.ID() {
				res.Violations = append(res.Violations, r.violation(domain.EntityAnimal, animalID,
					fmt.Sprintf("animal %s is listed in enclosure %s but references %q", animalID, enc.ID(), ref)))
			}
		}
	}
	for _, animal := range view.ListAnimals() {
		ref, housed := animal.HousedIn()
		if !housed {
			continue
		}
		if residentOf[animal.ID] != ref {
			res.Violations = append(res.Violations, r.violation(domain.EntityAnimal, animal.ID,
				fmt.Sprintf("animal %s references enclosure %s which does not list it", animal.ID, ref)))
		}
	}
	return res, nil
}

func (residencyConsistencyRule) violation(entity domain.EntityType, id, msg string) domain.Violation {
	return domain.Violation{
		Rule:     "residency_consistency",
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   entity,
		EntityID: id,
	}
}

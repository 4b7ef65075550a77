package core

import (
	"context"
	"fmt"

	"zoocore/pkg/domain"
)

// NewSickAnimalSharedRule returns a warning rule flagging sick animals that
// share an enclosure with other residents.
func NewSickAnimalSharedRule() domain.Rule {
	return sickAnimalSharedRule{}
}

type sickAnimalSharedRule struct{}

func (sickAnimalSharedRule) Name() string { return "sick_animal_shared" }

func (sickAnimalSharedRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, enc := range view.ListEnclosures() {
		residents := enc.Animals()
		if len(residents) < 2 {
			continue
		}
		for _, id := range residents {
			animal, ok := view.FindAnimal(id)
			if !ok || animal.Status != domain.AnimalSick {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "sick_animal_shared",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("sick animal %s shares enclosure %s with %d others", id, enc.ID(), len(residents)-1),
				Entity:   domain.EntityAnimal,
				EntityID: id,
			})
		}
	}
	return res, nil
}

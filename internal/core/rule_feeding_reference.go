package core

import (
	"context"
	"fmt"

	"zoocore/pkg/domain"
)

// NewFeedingReferenceRule returns a rule that blocks feeding schedules
// pointing at animals that do not exist.
func NewFeedingReferenceRule() domain.Rule {
	return feedingReferenceRule{}
}

type feedingReferenceRule struct{}

func (feedingReferenceRule) Name() string { return "feeding_reference" }

func (r feedingReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, feeding := range view.ListFeedings() {
		if _, ok := view.FindAnimal(feeding.AnimalID); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("feeding %s references unknown animal %s", feeding.ID, feeding.AnimalID),
			Entity:   domain.EntityFeeding,
			EntityID: feeding.ID,
		})
	}
	return res, nil
}

package core

import (
	"context"
	"fmt"

	"zoocore/pkg/domain"
)

// NewEnclosureCapacityRule returns the default in-transaction rule enforcing enclosure capacity.
func NewEnclosureCapacityRule() domain.Rule {
	return enclosureCapacityRule{}
}

type enclosureCapacityRule struct{}

func (enclosureCapacityRule) Name() string { return "enclosure_capacity" }

func (enclosureCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, enc := range view.ListEnclosures() {
		count := enc.Count()
		if count > enc.Capacity() {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "enclosure_capacity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("enclosure %s over capacity: %d/%d animals", enc.ID(), count, enc.Capacity()),
				Entity:   domain.EntityEnclosure,
				EntityID: enc.ID(),
			})
		}
	}
	return res, nil
}

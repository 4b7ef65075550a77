package core

import "zoocore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewEnclosureCapacityRule())
	engine.Register(NewResidencyConsistencyRule())
	engine.Register(NewSickAnimalSharedRule())
	engine.Register(NewFeedingReferenceRule())
	return engine
}

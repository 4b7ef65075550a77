package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Enclosures handed to mutators belong
// to the transaction; changes become visible only when it commits.
type Transaction interface {
	Snapshot() TransactionView
	CreateEnclosure(*Enclosure) (*Enclosure, error)
	UpdateEnclosure(id string, mutator func(*Enclosure) error) (*Enclosure, error)
	DeleteEnclosure(id string) error
	CreateAnimal(Animal) (Animal, error)
	UpdateAnimal(id string, mutator func(*Animal) error) (Animal, error)
	DeleteAnimal(id string) error
	CreateFeeding(FeedingSchedule) (FeedingSchedule, error)
	UpdateFeeding(id string, mutator func(*FeedingSchedule) error) (FeedingSchedule, error)
	DeleteFeeding(id string) error
	FindEnclosure(id string) (*Enclosure, bool)
	FindAnimal(id string) (Animal, bool)
	FindFeeding(id string) (FeedingSchedule, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. Reads
// return detached copies; writes go through RunInTransaction, which commits
// (saves) only when fn and the rules engine succeed.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetEnclosure(id string) (*Enclosure, bool)
	ListEnclosures() []*Enclosure
	GetAnimal(id string) (Animal, bool)
	ListAnimals() []Animal
	GetFeeding(id string) (FeedingSchedule, bool)
	ListFeedings() []FeedingSchedule
}

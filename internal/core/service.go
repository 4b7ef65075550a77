// Package core implements the zoo application service: transactional
// admission, transfer and release of animals, enclosure lifecycle and feeding
// schedules, wrapped with logging, metrics, tracing, audit and event hooks.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zoocore/internal/infra/persistence/memory"
	"zoocore/pkg/domain"
)

// Service operation names used for logs, metrics, spans and audit entries.
const (
	OpCreateEnclosure    = "create_enclosure"
	OpGetEnclosure       = "get_enclosure"
	OpListEnclosures     = "list_enclosures"
	OpDeleteEnclosure    = "delete_enclosure"
	OpCleanEnclosure     = "clean_enclosure"
	OpCreateAnimal       = "create_animal"
	OpGetAnimal          = "get_animal"
	OpListAnimals        = "list_animals"
	OpUpdateAnimalStatus = "update_animal_status"
	OpDeleteAnimal       = "delete_animal"
	OpAdmitAnimal        = "admit_animal"
	OpTransferAnimal     = "transfer_animal"
	OpReleaseAnimal      = "release_animal"
	OpStatistics         = "statistics"
	OpPopulation         = "population"
	OpScheduleFeeding    = "schedule_feeding"
	OpGetFeeding         = "get_feeding"
	OpListFeedings       = "list_feedings"
	OpRescheduleFeeding  = "reschedule_feeding"
	OpCompleteFeeding    = "complete_feeding"
	OpCancelFeeding      = "cancel_feeding"
)

const auditActionRead domain.Action = "read"

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

var operationMetadata = map[string]operationMeta{
	OpCreateEnclosure:    {domain.EntityEnclosure, domain.ActionCreate},
	OpGetEnclosure:       {domain.EntityEnclosure, auditActionRead},
	OpListEnclosures:     {domain.EntityEnclosure, auditActionRead},
	OpDeleteEnclosure:    {domain.EntityEnclosure, domain.ActionDelete},
	OpCleanEnclosure:     {domain.EntityEnclosure, domain.ActionUpdate},
	OpCreateAnimal:       {domain.EntityAnimal, domain.ActionCreate},
	OpGetAnimal:          {domain.EntityAnimal, auditActionRead},
	OpListAnimals:        {domain.EntityAnimal, auditActionRead},
	OpUpdateAnimalStatus: {domain.EntityAnimal, domain.ActionUpdate},
	OpDeleteAnimal:       {domain.EntityAnimal, domain.ActionDelete},
	OpAdmitAnimal:        {domain.EntityAnimal, domain.ActionUpdate},
	OpTransferAnimal:     {domain.EntityAnimal, domain.ActionUpdate},
	OpReleaseAnimal:      {domain.EntityAnimal, domain.ActionUpdate},
	OpStatistics:         {domain.EntityEnclosure, auditActionRead},
	OpPopulation:         {domain.EntityEnclosure, auditActionRead},
	OpScheduleFeeding:    {domain.EntityFeeding, domain.ActionCreate},
	OpGetFeeding:         {domain.EntityFeeding, auditActionRead},
	OpListFeedings:       {domain.EntityFeeding, auditActionRead},
	OpRescheduleFeeding:  {domain.EntityFeeding, domain.ActionUpdate},
	OpCompleteFeeding:    {domain.EntityFeeding, domain.ActionUpdate},
	OpCancelFeeding:      {domain.EntityFeeding, domain.ActionDelete},
}

// Service exposes the zoo operations on top of a persistent store.
type Service struct {
	store   domain.PersistentStore
	clock   Clock
	ids     domain.IDGenerator
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	events  EventPublisher
}

type rulesEngineProvider interface {
	RulesEngine() *domain.RulesEngine
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.rules) > 0 {
		if p, ok := store.(rulesEngineProvider); ok && p.RulesEngine() != nil {
			for _, rule := range o.rules {
				p.RulesEngine().Register(rule)
			}
		}
	}
	return &Service{
		store:   store,
		clock:   o.clock,
		ids:     o.ids,
		logger:  o.logger,
		audit:   o.audit,
		metrics: o.metrics,
		tracer:  o.tracer,
		events:  o.events,
	}
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects the default rule set.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	store := memory.NewStore(engine, memory.WithClock(o.clock.Now))
	return NewService(store, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// run executes fn in a store transaction and reports the outcome to the
// configured observability hooks. entityID is read after fn completes.
func (s *Service) run(ctx context.Context, op string, entityID *string, fn func(domain.Transaction) error) (domain.Result, error) {
	var res domain.Result
	err := s.observe(ctx, op, entityID, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, fn)
		return err
	})
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", v.Severity, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	return res, err
}

func (s *Service) observe(ctx context.Context, op string, entityID *string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	s.metrics.Observe(ctx, op, err == nil, duration)
	span.End(err)

	var id string
	if entityID != nil {
		id = *entityID
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "entity_id", id, "error", err)
		s.recordAudit(ctx, op, id, duration, err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", id, "duration", duration)
	s.recordAudit(ctx, op, id, duration, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, opErr error) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Timestamp: s.clock.Now(),
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
	}
	if opErr != nil {
		entry.Status = AuditStatusError
		entry.Error = opErr.Error()
	}
	s.audit.Record(ctx, entry)
}

// CreateEnclosure creates an empty enclosure from the supplied attributes.
// An empty ID is replaced with a generated one. Residents are only ever added
// through admission, so a non-empty resident list is rejected.
func (s *Service) CreateEnclosure(ctx context.Context, input domain.EnclosureState) (*domain.Enclosure, domain.Result, error) {
	if input.ID == "" {
		input.ID = s.ids.NewID()
	}
	id := input.ID
	var created *domain.Enclosure
	res, err := s.run(ctx, OpCreateEnclosure, &id, func(tx domain.Transaction) error {
		if len(input.Animals) > 0 {
			return fmt.Errorf("%w: new enclosures start empty", domain.ErrInvalidEnclosure)
		}
		enc, err := domain.NewEnclosure(input.ID, input.Type, input.AreaM2, input.Capacity)
		if err != nil {
			return err
		}
		created, err = tx.CreateEnclosure(enc)
		return err
	})
	return created, res, err
}

// GetEnclosure returns the enclosure with the given identifier.
func (s *Service) GetEnclosure(ctx context.Context, id string) (*domain.Enclosure, error) {
	var enc *domain.Enclosure
	err := s.observe(ctx, OpGetEnclosure, &id, func(context.Context) error {
		found, ok := s.store.GetEnclosure(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityEnclosure, ID: id}
		}
		enc = found
		return nil
	})
	return enc, err
}

// ListEnclosures returns all enclosures ordered by creation time.
func (s *Service) ListEnclosures(ctx context.Context) []*domain.Enclosure {
	var out []*domain.Enclosure
	_ = s.observe(ctx, OpListEnclosures, nil, func(context.Context) error {
		out = s.store.ListEnclosures()
		return nil
	})
	return out
}

// DeleteEnclosure removes an empty enclosure.
func (s *Service) DeleteEnclosure(ctx context.Context, id string) (domain.Result, error) {
	return s.run(ctx, OpDeleteEnclosure, &id, func(tx domain.Transaction) error {
		enc, ok := tx.FindEnclosure(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityEnclosure, ID: id}
		}
		if n := enc.Count(); n > 0 {
			return fmt.Errorf("%w: enclosure %s has %d residents", domain.ErrEnclosureOccupied, id, n)
		}
		return tx.DeleteEnclosure(id)
	})
}

// CleanEnclosure records a cleaning of the enclosure at the service clock time.
func (s *Service) CleanEnclosure(ctx context.Context, id string) (*domain.Enclosure, domain.Result, error) {
	var cleaned *domain.Enclosure
	now := s.clock.Now()
	res, err := s.run(ctx, OpCleanEnclosure, &id, func(tx domain.Transaction) error {
		var err error
		cleaned, err = tx.UpdateEnclosure(id, func(e *domain.Enclosure) error {
			e.Clean(now)
			return nil
		})
		return err
	})
	return cleaned, res, err
}

// CreateAnimal registers an animal. When EnclosureID is set the animal is
// admitted into that enclosure within the same transaction.
func (s *Service) CreateAnimal(ctx context.Context, animal domain.Animal) (domain.Animal, domain.Result, error) {
	if animal.ID == "" {
		animal.ID = s.ids.NewID()
	}
	id := animal.ID
	var created domain.Animal
	res, err := s.run(ctx, OpCreateAnimal, &id, func(tx domain.Transaction) error {
		target, housed := animal.HousedIn()
		animal.EnclosureID = nil
		var err error
		created, err = tx.CreateAnimal(animal)
		if err != nil {
			return err
		}
		if !housed {
			return nil
		}
		created, err = admit(tx, created.ID, target)
		return err
	})
	if err == nil {
		if to, housed := created.HousedIn(); housed {
			s.publish(ctx, movedEvent(created.ID, "", to))
		}
	}
	return created, res, err
}

// GetAnimal returns the animal with the given identifier.
func (s *Service) GetAnimal(ctx context.Context, id string) (domain.Animal, error) {
	var animal domain.Animal
	err := s.observe(ctx, OpGetAnimal, &id, func(context.Context) error {
		found, ok := s.store.GetAnimal(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityAnimal, ID: id}
		}
		animal = found
		return nil
	})
	return animal, err
}

// ListAnimals returns all animals ordered by creation time.
func (s *Service) ListAnimals(ctx context.Context) []domain.Animal {
	var out []domain.Animal
	_ = s.observe(ctx, OpListAnimals, nil, func(context.Context) error {
		out = s.store.ListAnimals()
		return nil
	})
	return out
}

// UpdateAnimalStatus changes an animal's health status.
func (s *Service) UpdateAnimalStatus(ctx context.Context, id string, status domain.AnimalStatus) (domain.Animal, domain.Result, error) {
	var updated domain.Animal
	res, err := s.run(ctx, OpUpdateAnimalStatus, &id, func(tx domain.Transaction) error {
		if !status.Valid() {
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidAnimal, status)
		}
		var err error
		updated, err = tx.UpdateAnimal(id, func(a *domain.Animal) error {
			a.Status = status
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteAnimal removes an animal, vacating its enclosure slot first. The
// animal's feeding schedules are removed with it.
func (s *Service) DeleteAnimal(ctx context.Context, id string) (domain.Result, error) {
	var from string
	res, err := s.run(ctx, OpDeleteAnimal, &id, func(tx domain.Transaction) error {
		from = currentEnclosure(tx, id)
		if _, err := release(tx, id); err != nil {
			return err
		}
		for _, feeding := range tx.Snapshot().ListFeedings() {
			if feeding.AnimalID != id {
				continue
			}
			if err := tx.DeleteFeeding(feeding.ID); err != nil {
				return err
			}
		}
		return tx.DeleteAnimal(id)
	})
	if err == nil && from != "" {
		s.publish(ctx, movedEvent(id, from, ""))
	}
	return res, err
}

// AdmitAnimal houses an unhoused animal in the given enclosure.
func (s *Service) AdmitAnimal(ctx context.Context, animalID, enclosureID string) (domain.Animal, domain.Result, error) {
	var admitted domain.Animal
	res, err := s.run(ctx, OpAdmitAnimal, &animalID, func(tx domain.Transaction) error {
		var err error
		admitted, err = admit(tx, animalID, enclosureID)
		return err
	})
	if err == nil {
		s.publish(ctx, movedEvent(animalID, "", enclosureID))
	}
	return admitted, res, err
}

// TransferAnimal moves an animal into another enclosure. Both resident sets
// and the back-reference change together or not at all; a full target leaves
// everything as it was. Transferring into the current enclosure is a no-op.
func (s *Service) TransferAnimal(ctx context.Context, animalID, toEnclosureID string) (domain.Animal, domain.Result, error) {
	var moved domain.Animal
	var from string
	changed := false
	res, err := s.run(ctx, OpTransferAnimal, &animalID, func(tx domain.Transaction) error {
		animal, ok := tx.FindAnimal(animalID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityAnimal, ID: animalID}
		}
		if _, ok := tx.FindEnclosure(toEnclosureID); !ok {
			return domain.ErrNotFound{Entity: domain.EntityEnclosure, ID: toEnclosureID}
		}
		from, _ = animal.HousedIn()
		if from == toEnclosureID {
			moved = animal
			return nil
		}
		changed = true
		if _, err := tx.UpdateEnclosure(toEnclosureID, func(e *domain.Enclosure) error {
			return e.AddAnimal(animal)
		}); err != nil {
			return err
		}
		if err := vacate(tx, animal); err != nil {
			return err
		}
		var err error
		moved, err = tx.UpdateAnimal(animalID, func(a *domain.Animal) error {
			target := toEnclosureID
			a.EnclosureID = &target
			return nil
		})
		return err
	})
	if err == nil && changed {
		s.publish(ctx, movedEvent(animalID, from, toEnclosureID))
	}
	return moved, res, err
}

// ReleaseAnimal removes an animal from its enclosure and clears its
// back-reference. Releasing an unhoused animal does nothing.
func (s *Service) ReleaseAnimal(ctx context.Context, animalID string) (domain.Animal, domain.Result, error) {
	var released domain.Animal
	var from string
	res, err := s.run(ctx, OpReleaseAnimal, &animalID, func(tx domain.Transaction) error {
		from = currentEnclosure(tx, animalID)
		var err error
		released, err = release(tx, animalID)
		return err
	})
	if err == nil && from != "" {
		s.publish(ctx, movedEvent(animalID, from, ""))
	}
	return released, res, err
}

func currentEnclosure(tx domain.Transaction, animalID string) string {
	animal, ok := tx.FindAnimal(animalID)
	if !ok {
		return ""
	}
	from, _ := animal.HousedIn()
	return from
}

func admit(tx domain.Transaction, animalID, enclosureID string) (domain.Animal, error) {
	animal, ok := tx.FindAnimal(animalID)
	if !ok {
		return domain.Animal{}, domain.ErrNotFound{Entity: domain.EntityAnimal, ID: animalID}
	}
	if current, housed := animal.HousedIn(); housed {
		return domain.Animal{}, fmt.Errorf("%w: animal %s lives in enclosure %s", domain.ErrAnimalHoused, animalID, current)
	}
	if _, err := tx.UpdateEnclosure(enclosureID, func(e *domain.Enclosure) error {
		return e.AddAnimal(animal)
	}); err != nil {
		return domain.Animal{}, err
	}
	return tx.UpdateAnimal(animalID, func(a *domain.Animal) error {
		target := enclosureID
		a.EnclosureID = &target
		return nil
	})
}

func release(tx domain.Transaction, animalID string) (domain.Animal, error) {
	animal, ok := tx.FindAnimal(animalID)
	if !ok {
		return domain.Animal{}, domain.ErrNotFound{Entity: domain.EntityAnimal, ID: animalID}
	}
	if _, housed := animal.HousedIn(); !housed {
		return animal, nil
	}
	if err := vacate(tx, animal); err != nil {
		return domain.Animal{}, err
	}
	return tx.UpdateAnimal(animalID, func(a *domain.Animal) error {
		a.EnclosureID = nil
		return nil
	})
}

// vacate removes the animal from the enclosure its back-reference names. A
// reference to an enclosure that no longer exists is tolerated.
func vacate(tx domain.Transaction, animal domain.Animal) error {
	from, housed := animal.HousedIn()
	if !housed {
		return nil
	}
	_, err := tx.UpdateEnclosure(from, func(e *domain.Enclosure) error {
		e.RemoveAnimal(animal)
		return nil
	})
	if domain.IsNotFound(err) {
		return nil
	}
	return err
}

// IsCapacityExceeded reports whether err stems from a full enclosure.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, domain.ErrCapacityExceeded)
}

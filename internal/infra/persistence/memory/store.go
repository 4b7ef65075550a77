// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zoocore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
)

type (
	// Enclosure aliases domain.Enclosure for in-memory persistence operations.
	Enclosure = domain.Enclosure
	// Animal aliases domain.Animal.
	Animal = domain.Animal
	// FeedingSchedule aliases domain.FeedingSchedule.
	FeedingSchedule = domain.FeedingSchedule
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
)

type memoryState struct {
	enclosures map[string]*Enclosure
	animals    map[string]Animal
	feedings   map[string]FeedingSchedule
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Enclosures map[string]domain.EnclosureState `json:"enclosures"`
	Animals    map[string]Animal                `json:"animals"`
	Feedings   map[string]FeedingSchedule       `json:"feedings"`
}

func newMemoryState() memoryState {
	return memoryState{
		enclosures: make(map[string]*Enclosure),
		animals:    make(map[string]Animal),
		feedings:   make(map[string]FeedingSchedule),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		enclosures: make(map[string]*Enclosure, len(s.enclosures)),
		animals:    make(map[string]Animal, len(s.animals)),
		feedings:   make(map[string]FeedingSchedule, len(s.feedings)),
	}
	for k, v := range s.enclosures {
		cloned.enclosures[k] = v.Clone()
	}
	for k, v := range s.animals {
		cloned.animals[k] = v.Clone()
	}
	for k, v := range s.feedings {
		cloned.feedings[k] = v.Clone()
	}
	return cloned
}

func snapshotFromState(state memoryState) Snapshot {
	s := Snapshot{
		Enclosures: make(map[string]domain.EnclosureState, len(state.enclosures)),
		Animals:    make(map[string]Animal, len(state.animals)),
		Feedings:   make(map[string]FeedingSchedule, len(state.feedings)),
	}
	for k, v := range state.enclosures {
		s.Enclosures[k] = v.State()
	}
	for k, v := range state.animals {
		s.Animals[k] = v.Clone()
	}
	for k, v := range state.feedings {
		s.Feedings[k] = v.Clone()
	}
	return s
}

func stateFromSnapshot(s Snapshot) (memoryState, error) {
	state := newMemoryState()
	for k, v := range s.Enclosures {
		if v.ID == "" {
			v.ID = k
		}
		e, err := domain.RestoreEnclosure(v)
		if err != nil {
			return memoryState{}, fmt.Errorf("restore enclosure %s: %w", k, err)
		}
		state.enclosures[k] = e
	}
	for k, v := range s.Animals {
		if v.ID == "" {
			v.ID = k
		}
		state.animals[k] = v.Clone()
	}
	for k, v := range s.Feedings {
		if v.ID == "" {
			v.ID = k
		}
		state.feedings[k] = v.Clone()
	}
	return state, nil
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// CommitHook receives the state a transaction is about to commit. A non-nil
// error aborts the commit and leaves the previous state in place.
type CommitHook func(ctx context.Context, pending Snapshot) error

// WithCommitHook registers a hook run after the rules pass and before the
// transaction state replaces the committed state.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// Store provides an in-memory transactional store for the zoo domain.
// Transactions are serialised; each runs against a private copy of the state
// that replaces the committed state only when fn, the rules and every commit
// hook succeed.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	hooks  []CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RulesEngine returns the engine evaluated on every commit.
func (s *Store) RulesEngine() *RulesEngine { return s.engine }

// ExportState returns a deep copy of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the committed state with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) error {
	state, err := stateFromSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}
	if len(s.hooks) > 0 {
		pending := snapshotFromState(tx.state)
		for _, hook := range s.hooks {
			if err := hook(ctx, pending); err != nil {
				return result, err
			}
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{state: &snapshot})
}

// GetEnclosure returns a copy of the committed enclosure.
func (s *Store) GetEnclosure(id string) (*Enclosure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.enclosures[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// ListEnclosures returns copies of all committed enclosures ordered by creation.
func (s *Store) ListEnclosures() []*Enclosure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEnclosures(&s.state)
}

// GetAnimal returns a copy of the committed animal.
func (s *Store) GetAnimal(id string) (Animal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.animals[id]
	if !ok {
		return Animal{}, false
	}
	return a.Clone(), true
}

// ListAnimals returns copies of all committed animals ordered by creation.
func (s *Store) ListAnimals() []Animal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAnimals(&s.state)
}

// GetFeeding returns a copy of the committed feeding schedule.
func (s *Store) GetFeeding(id string) (FeedingSchedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.feedings[id]
	if !ok {
		return FeedingSchedule{}, false
	}
	return f.Clone(), true
}

// ListFeedings returns copies of all committed feeding schedules ordered by
// feeding time.
func (s *Store) ListFeedings() []FeedingSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listFeedings(&s.state)
}

func listEnclosures(state *memoryState) []*Enclosure {
	out := make([]*Enclosure, 0, len(state.enclosures))
	for _, e := range state.enclosures {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].CreatedAt(), out[j].CreatedAt()
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

func listAnimals(state *memoryState) []Animal {
	out := make([]Animal, 0, len(state.animals))
	for _, a := range state.animals {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func listFeedings(state *memoryState) []FeedingSchedule {
	out := make([]FeedingSchedule, 0, len(state.feedings))
	for _, f := range state.feedings {
		out = append(out, f.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FeedAt.Equal(out[j].FeedAt) {
			return out[i].FeedAt.Before(out[j].FeedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type view struct {
	state *memoryState
}

func (v view) ListEnclosures() []*Enclosure { return listEnclosures(v.state) }

func (v view) ListAnimals() []Animal { return listAnimals(v.state) }

func (v view) FindEnclosure(id string) (*Enclosure, bool) {
	e, ok := v.state.enclosures[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

func (v view) FindAnimal(id string) (Animal, bool) {
	a, ok := v.state.animals[id]
	if !ok {
		return Animal{}, false
	}
	return a.Clone(), true
}

func (v view) ListFeedings() []FeedingSchedule { return listFeedings(v.state) }

func (v view) FindFeeding(id string) (FeedingSchedule, bool) {
	f, ok := v.state.feedings[id]
	if !ok {
		return FeedingSchedule{}, false
	}
	return f.Clone(), true
}

type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transaction's working state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return view{state: &tx.state}
}

func (tx *transaction) FindEnclosure(id string) (*Enclosure, bool) {
	return view{state: &tx.state}.FindEnclosure(id)
}

func (tx *transaction) FindAnimal(id string) (Animal, bool) {
	return view{state: &tx.state}.FindAnimal(id)
}

func (tx *transaction) FindFeeding(id string) (FeedingSchedule, bool) {
	return view{state: &tx.state}.FindFeeding(id)
}

func (tx *transaction) CreateEnclosure(e *Enclosure) (*Enclosure, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil enclosure", domain.ErrInvalidEnclosure)
	}
	if e.ID() == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidEnclosure)
	}
	if _, exists := tx.state.enclosures[e.ID()]; exists {
		return nil, fmt.Errorf("enclosure %q: %w", e.ID(), domain.ErrAlreadyExists)
	}
	stored := e.Clone()
	stored.Touch(tx.now)
	tx.state.enclosures[stored.ID()] = stored
	tx.recordChange(Change{Entity: domain.EntityEnclosure, Action: domain.ActionCreate, After: stored.State()})
	return stored.Clone(), nil
}

func (tx *transaction) UpdateEnclosure(id string, mutator func(*Enclosure) error) (*Enclosure, error) {
	current, ok := tx.state.enclosures[id]
	if !ok {
		return nil, domain.ErrNotFound{Entity: domain.EntityEnclosure, ID: id}
	}
	working := current.Clone()
	if err := mutator(working); err != nil {
		return nil, err
	}
	working.Touch(tx.now)
	tx.state.enclosures[id] = working
	tx.recordChange(Change{Entity: domain.EntityEnclosure, Action: domain.ActionUpdate, Before: current.State(), After: working.State()})
	return working.Clone(), nil
}

func (tx *transaction) DeleteEnclosure(id string) error {
	current, ok := tx.state.enclosures[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityEnclosure, ID: id}
	}
	delete(tx.state.enclosures, id)
	tx.recordChange(Change{Entity: domain.EntityEnclosure, Action: domain.ActionDelete, Before: current.State()})
	return nil
}

func (tx *transaction) CreateAnimal(a Animal) (Animal, error) {
	if a.ID == "" {
		return Animal{}, fmt.Errorf("%w: id is required", domain.ErrInvalidAnimal)
	}
	if _, exists := tx.state.animals[a.ID]; exists {
		return Animal{}, fmt.Errorf("animal %q: %w", a.ID, domain.ErrAlreadyExists)
	}
	if err := a.Validate(); err != nil {
		return Animal{}, err
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.animals[a.ID] = a.Clone()
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionCreate, After: a.Clone()})
	return a.Clone(), nil
}

func (tx *transaction) UpdateAnimal(id string, mutator func(*Animal) error) (Animal, error) {
	current, ok := tx.state.animals[id]
	if !ok {
		return Animal{}, domain.ErrNotFound{Entity: domain.EntityAnimal, ID: id}
	}
	before := current.Clone()
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return Animal{}, err
	}
	working.ID = id
	working.CreatedAt = before.CreatedAt
	working.UpdatedAt = tx.now
	if err := working.Validate(); err != nil {
		return Animal{}, err
	}
	tx.state.animals[id] = working.Clone()
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionUpdate, Before: before, After: working.Clone()})
	return working.Clone(), nil
}

func (tx *transaction) DeleteAnimal(id string) error {
	current, ok := tx.state.animals[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityAnimal, ID: id}
	}
	delete(tx.state.animals, id)
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionDelete, Before: current})
	return nil
}

func (tx *transaction) CreateFeeding(f FeedingSchedule) (FeedingSchedule, error) {
	if f.ID == "" {
		return FeedingSchedule{}, fmt.Errorf("%w: id is required", domain.ErrInvalidFeeding)
	}
	if _, exists := tx.state.feedings[f.ID]; exists {
		return FeedingSchedule{}, fmt.Errorf("feeding %q: %w", f.ID, domain.ErrAlreadyExists)
	}
	if err := f.Validate(); err != nil {
		return FeedingSchedule{}, err
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.feedings[f.ID] = f.Clone()
	tx.recordChange(Change{Entity: domain.EntityFeeding, Action: domain.ActionCreate, After: f.Clone()})
	return f.Clone(), nil
}

func (tx *transaction) UpdateFeeding(id string, mutator func(*FeedingSchedule) error) (FeedingSchedule, error) {
	current, ok := tx.state.feedings[id]
	if !ok {
		return FeedingSchedule{}, domain.ErrNotFound{Entity: domain.EntityFeeding, ID: id}
	}
	before := current.Clone()
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return FeedingSchedule{}, err
	}
	working.ID = id
	working.AnimalID = before.AnimalID
	working.CreatedAt = before.CreatedAt
	working.UpdatedAt = tx.now
	if err := working.Validate(); err != nil {
		return FeedingSchedule{}, err
	}
	tx.state.feedings[id] = working.Clone()
	tx.recordChange(Change{Entity: domain.EntityFeeding, Action: domain.ActionUpdate, Before: before, After: working.Clone()})
	return working.Clone(), nil
}

func (tx *transaction) DeleteFeeding(id string) error {
	current, ok := tx.state.feedings[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityFeeding, ID: id}
	}
	delete(tx.state.feedings, id)
	tx.recordChange(Change{Entity: domain.EntityFeeding, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

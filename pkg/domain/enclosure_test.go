package domain

import (
	"encoding/json"
	"errors"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"
)

func mustEnclosure(t *testing.T, capacity int) *Enclosure {
	t.Helper()
	e, err := NewEnclosure("enc-1", EnclosureCarnivore, 100, capacity)
	if err != nil {
		t.Fatalf("new enclosure: %v", err)
	}
	return e
}

func animal(id string) Animal {
	return Animal{Base: Base{ID: id}, Species: "Lion", Name: id}
}

func TestNewEnclosureValidation(t *testing.T) {
	cases := []struct {
		name     string
		id       string
		kind     EnclosureType
		area     float64
		capacity int
	}{
		{"missing id", "", EnclosureAviary, 10, 1},
		{"unknown type", "e", EnclosureType("volcano"), 10, 1},
		{"zero area", "e", EnclosureAviary, 0, 1},
		{"negative area", "e", EnclosureAviary, -5, 1},
		{"zero capacity", "e", EnclosureAviary, 10, 0},
		{"negative capacity", "e", EnclosureAviary, 10, -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEnclosure(tc.id, tc.kind, tc.area, tc.capacity); !errors.Is(err, ErrInvalidEnclosure) {
				t.Fatalf("expected ErrInvalidEnclosure, got %v", err)
			}
		})
	}

	e, err := NewEnclosure("e", EnclosureHerbivore, 42.5, 3)
	if err != nil {
		t.Fatalf("valid enclosure: %v", err)
	}
	if e.ID() != "e" || e.Type() != EnclosureHerbivore || e.AreaM2() != 42.5 || e.Capacity() != 3 {
		t.Fatalf("unexpected accessors: %+v", e.State())
	}
	if e.Count() != 0 || len(e.Animals()) != 0 {
		t.Fatalf("expected empty resident set")
	}
}

func TestEnclosureFillToCapacity(t *testing.T) {
	e := mustEnclosure(t, 2)

	if err := e.AddAnimal(animal("A")); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if got := e.Animals(); !slices.Equal(got, []string{"A"}) {
		t.Fatalf("residents = %v", got)
	}
	if !e.CanAdd() {
		t.Fatalf("expected CanAdd after first add")
	}

	if err := e.AddAnimal(animal("B")); err != nil {
		t.Fatalf("add B: %v", err)
	}
	if got := e.Animals(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("residents = %v", got)
	}
	if e.CanAdd() {
		t.Fatalf("expected full enclosure")
	}

	err := e.AddAnimal(animal("C"))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if got := e.Animals(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("failed add mutated residents: %v", got)
	}
	// Retrying without freeing space fails identically.
	if err := e.AddAnimal(animal("C")); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected retry to fail, got %v", err)
	}
}

func TestEnclosureRemoveIsIdempotent(t *testing.T) {
	e := mustEnclosure(t, 2)
	for _, id := range []string{"A", "B"} {
		if err := e.AddAnimal(animal(id)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	e.RemoveAnimal(animal("A"))
	if got := e.Animals(); !slices.Equal(got, []string{"B"}) {
		t.Fatalf("residents after remove = %v", got)
	}
	if !e.CanAdd() {
		t.Fatalf("expected room after remove")
	}

	e.RemoveAnimal(animal("A"))
	if got := e.Animals(); !slices.Equal(got, []string{"B"}) {
		t.Fatalf("second remove changed residents: %v", got)
	}
	e.RemoveAnimal(animal("never-there"))
	if e.Count() != 1 {
		t.Fatalf("expected count 1, got %d", e.Count())
	}
}

func TestEnclosureAddDuplicateIsNoop(t *testing.T) {
	e := mustEnclosure(t, 2)
	if err := e.AddAnimal(animal("A")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.AddAnimal(animal("A")); err != nil {
		t.Fatalf("re-adding resident should not fail: %v", err)
	}
	if e.Count() != 1 {
		t.Fatalf("duplicate resident recorded")
	}
}

func TestEnclosureFullRefusesResident(t *testing.T) {
	e := mustEnclosure(t, 2)
	for _, id := range []string{"A", "B"} {
		if err := e.AddAnimal(animal(id)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if e.CanAdd() {
		t.Fatalf("expected full enclosure")
	}
	if err := e.AddAnimal(animal("A")); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded for resident of full enclosure, got %v", err)
	}
	if !slices.Equal(e.Animals(), []string{"A", "B"}) {
		t.Fatalf("residents changed: %v", e.Animals())
	}
}

func TestEnclosureRandomSequencesStayWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		capacity := rng.Intn(5) + 1
		e := mustEnclosure(t, capacity)
		for step := 0; step < 200; step++ {
			a := animal(string(rune('a' + rng.Intn(8))))
			before := e.Animals()
			if rng.Intn(2) == 0 {
				couldAdd := e.CanAdd()
				err := e.AddAnimal(a)
				switch {
				case err == nil:
					if !couldAdd {
						t.Fatalf("add succeeded while CanAdd was false")
					}
				case errors.Is(err, ErrCapacityExceeded):
					if couldAdd {
						t.Fatalf("add failed while CanAdd was true")
					}
					if !slices.Equal(before, e.Animals()) {
						t.Fatalf("failed add mutated residents")
					}
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			} else {
				e.RemoveAnimal(a)
			}
			n := e.Count()
			if n < 0 || n > capacity {
				t.Fatalf("count %d outside [0,%d]", n, capacity)
			}
			if e.CanAdd() != (n < capacity) {
				t.Fatalf("CanAdd=%v with count %d capacity %d", e.CanAdd(), n, capacity)
			}
		}
	}
}

func TestEnclosureConcurrentAddsRespectCapacity(t *testing.T) {
	for i := 0; i < 100; i++ {
		e := mustEnclosure(t, 1)
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make(chan error, 2)
		)
		for _, id := range []string{"A", "B"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				<-start
				errs <- e.AddAnimal(animal(id))
			}(id)
		}
		close(start)
		wg.Wait()
		close(errs)

		var ok, full int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrCapacityExceeded):
				full++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 1 || full != 1 {
			t.Fatalf("expected one success and one failure, got %d/%d", ok, full)
		}
		if e.Count() != 1 {
			t.Fatalf("expected single resident, got %d", e.Count())
		}
	}
}

func TestEnclosureCleanKeepsResidents(t *testing.T) {
	e := mustEnclosure(t, 2)
	if err := e.AddAnimal(animal("A")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := e.LastCleanedAt(); ok {
		t.Fatalf("new enclosure should not report a cleaning")
	}
	e.Clean(time.Time{})
	if _, ok := e.LastCleanedAt(); ok {
		t.Fatalf("zero time should be ignored")
	}
	at := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	e.Clean(at)
	got, ok := e.LastCleanedAt()
	if !ok || !got.Equal(at) {
		t.Fatalf("last cleaned = %v %v", got, ok)
	}
	if !slices.Equal(e.Animals(), []string{"A"}) {
		t.Fatalf("clean changed residents")
	}
}

func TestEnclosureStateRoundTrip(t *testing.T) {
	e := mustEnclosure(t, 3)
	now := time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC)
	e.Touch(now)
	e.Clean(now)
	_ = e.AddAnimal(animal("A"))
	_ = e.AddAnimal(animal("B"))

	payload, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Enclosure
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID() != e.ID() || decoded.Capacity() != 3 || !slices.Equal(decoded.Animals(), []string{"A", "B"}) {
		t.Fatalf("decoded mismatch: %+v", decoded.State())
	}
	if !decoded.CreatedAt().Equal(now) || !decoded.UpdatedAt().Equal(now) {
		t.Fatalf("timestamps lost: %+v", decoded.State())
	}

	clone := e.Clone()
	clone.RemoveAnimal(animal("A"))
	if e.Count() != 2 {
		t.Fatalf("clone shares resident storage with original")
	}
}

func TestRestoreEnclosureRejectsOverCapacity(t *testing.T) {
	_, err := RestoreEnclosure(EnclosureState{
		ID:       "e",
		Type:     EnclosureAviary,
		AreaM2:   5,
		Capacity: 1,
		Animals:  []string{"A", "B"},
	})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	var e Enclosure
	if err := json.Unmarshal([]byte(`{"id":"e","type":"aviary","area_m2":5,"capacity":0}`), &e); !errors.Is(err, ErrInvalidEnclosure) {
		t.Fatalf("expected ErrInvalidEnclosure, got %v", err)
	}
}

func TestTouchKeepsCreationTime(t *testing.T) {
	e := mustEnclosure(t, 1)
	first := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	e.Touch(first)
	e.Touch(second)
	if !e.CreatedAt().Equal(first) || !e.UpdatedAt().Equal(second) {
		t.Fatalf("unexpected timestamps created=%v updated=%v", e.CreatedAt(), e.UpdatedAt())
	}
}

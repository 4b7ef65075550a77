package core

import (
	"context"
	"testing"

	"zoocore/pkg/domain"
)

func TestEventBusRetainsMostRecent(t *testing.T) {
	bus := NewEventBus(2)
	for _, id := range []string{"a", "b", "c"} {
		bus.Publish(context.Background(), Event{ID: id})
	}
	got := bus.Recent(0)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected retained events %+v", got)
	}
	if last := bus.Recent(1); len(last) != 1 || last[0].ID != "c" {
		t.Fatalf("unexpected last event %+v", last)
	}
	if all := bus.Recent(10); len(all) != 2 {
		t.Fatalf("limit above retention should return everything, got %d", len(all))
	}
	if empty := NewEventBus(0).Recent(5); len(empty) != 0 {
		t.Fatalf("new bus should be empty")
	}
}

func TestEventBusSubscribeAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(4)
	var seen []string
	cancel := bus.Subscribe(func(_ context.Context, e Event) { seen = append(seen, e.ID) })
	bus.Publish(context.Background(), Event{ID: "one"})
	cancel()
	bus.Publish(context.Background(), Event{ID: "two"})
	if len(seen) != 1 || seen[0] != "one" {
		t.Fatalf("unexpected deliveries %v", seen)
	}
}

func TestMovementEvents(t *testing.T) {
	ctx := context.Background()
	bus := NewEventBus(16)
	svc := newTestService(t, WithEventPublisher(bus))
	mustEnclosure(t, svc, "a", domain.EnclosureHerbivore, 1)
	mustEnclosure(t, svc, "b", domain.EnclosureHerbivore, 1)
	mustAnimal(t, svc, "z1", "a")
	mustAnimal(t, svc, "z2", "")
	if _, _, err := svc.TransferAnimal(ctx, "z1", "a"); err != nil {
		t.Fatalf("same-enclosure transfer: %v", err)
	}
	if _, _, err := svc.TransferAnimal(ctx, "z1", "b"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, _, err := svc.AdmitAnimal(ctx, "z2", "b"); err == nil {
		t.Fatalf("expected full enclosure")
	}
	if _, _, err := svc.AdmitAnimal(ctx, "z2", "a"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, _, err := svc.ReleaseAnimal(ctx, "z1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, _, err := svc.ReleaseAnimal(ctx, "z1"); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if _, err := svc.DeleteAnimal(ctx, "z2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []Event{
		{AnimalID: "z1", ToEnclosureID: "a"},
		{AnimalID: "z1", FromEnclosureID: "a", ToEnclosureID: "b"},
		{AnimalID: "z2", ToEnclosureID: "a"},
		{AnimalID: "z1", FromEnclosureID: "b"},
		{AnimalID: "z2", FromEnclosureID: "a"},
	}
	got := bus.Recent(0)
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Type != EventAnimalMoved || g.AnimalID != w.AnimalID || g.FromEnclosureID != w.FromEnclosureID || g.ToEnclosureID != w.ToEnclosureID {
			t.Fatalf("event %d: want %+v, got %+v", i, w, g)
		}
		if g.ID == "" || g.OccurredAt.IsZero() {
			t.Fatalf("event %d missing id or time: %+v", i, g)
		}
	}
}

func TestLogEventHandler(t *testing.T) {
	logger := &captureLogger{}
	LogEventHandler(logger)(context.Background(), Event{ID: "e", Type: EventAnimalMoved})
	if !logger.has("i:domain event") {
		t.Fatalf("expected info log, got %v", logger.calls)
	}
	LogEventHandler(nil)(context.Background(), Event{})
}

package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"zoocore/pkg/domain"
)

func gatherFamilies(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestPrometheusMetricsRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), OpAdmitAnimal, true, 2*time.Millisecond)
	rec.Observe(context.Background(), OpAdmitAnimal, false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	families := gatherFamilies(t, reg)
	ops := families["zoocore_service_operations_total"]
	if ops == nil || len(ops.GetMetric()) != 2 {
		t.Fatalf("expected two operation series, got %v", ops)
	}
	for _, m := range ops.GetMetric() {
		if labelValue(m, "operation") != OpAdmitAnimal || m.GetCounter().GetValue() != 1 {
			t.Fatalf("unexpected series %v", m)
		}
	}
	hist := families["zoocore_service_operation_duration_seconds"]
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two duration samples, got %v", hist)
	}

	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestOccupancyCollectorReadsStore(t *testing.T) {
	svc := newTestService(t)
	mustEnclosure(t, svc, "pen", domain.EnclosureCarnivore, 3)
	mustAnimal(t, svc, "leo", "pen")
	mustAnimal(t, svc, "stray", "")

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewOccupancyCollector(svc.Store()))
	families := gatherFamilies(t, reg)

	occ := families["zoocore_enclosure_occupancy"]
	if occ == nil || occ.GetMetric()[0].GetGauge().GetValue() != 1 || labelValue(occ.GetMetric()[0], "type") != "carnivore" {
		t.Fatalf("unexpected occupancy %v", occ)
	}
	capacity := families["zoocore_enclosure_capacity"]
	if capacity == nil || capacity.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("unexpected capacity %v", capacity)
	}
	animals := families["zoocore_animals_total"]
	if animals == nil || animals.GetMetric()[0].GetGauge().GetValue() != 2 || labelValue(animals.GetMetric()[0], "status") != "healthy" {
		t.Fatalf("unexpected animal totals %v", animals)
	}
}

func TestPrometheusEventCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	count, err := NewPrometheusEventCounter(reg)
	if err != nil {
		t.Fatalf("new counter: %v", err)
	}
	bus := NewEventBus(4)
	bus.Subscribe(count)
	bus.Publish(context.Background(), Event{Type: EventAnimalMoved})
	bus.Publish(context.Background(), Event{Type: EventAnimalMoved})
	bus.Publish(context.Background(), Event{Type: EventFeedingScheduled})

	family := gatherFamilies(t, reg)["zoocore_domain_events_total"]
	if family == nil || len(family.GetMetric()) != 2 {
		t.Fatalf("expected two event series, got %v", family)
	}
	for _, m := range family.GetMetric() {
		want := 1.0
		if labelValue(m, "type") == string(EventAnimalMoved) {
			want = 2
		}
		if m.GetCounter().GetValue() != want {
			t.Fatalf("unexpected series %v", m)
		}
	}
	if _, err := NewPrometheusEventCounter(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

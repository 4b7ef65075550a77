package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"zoocore/pkg/domain"
)

const metricsNamespace = "zoocore"

// PrometheusMetricsRecorder counts service operations and their latency.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder creates the recorder and registers its
// collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "service",
				Name:      "operations_total",
				Help:      "Total number of service operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "service",
				Name:      "operation_duration_seconds",
				Help:      "Duration of service operations.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"operation"},
		),
	}
	for _, c := range []prometheus.Collector{r.operations, r.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := string(AuditStatusSuccess)
	if !success {
		status = string(AuditStatusError)
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// NewPrometheusEventCounter registers a domain event counter with reg and
// returns a handler to subscribe to an EventBus.
func NewPrometheusEventCounter(reg prometheus.Registerer) (EventHandler, error) {
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "domain",
			Name:      "events_total",
			Help:      "Total number of published domain events by type.",
		},
		[]string{"type"},
	)
	if err := reg.Register(events); err != nil {
		return nil, err
	}
	return func(_ context.Context, event Event) {
		events.WithLabelValues(string(event.Type)).Inc()
	}, nil
}

// OccupancyCollector exports per-enclosure occupancy gauges computed from the
// store at scrape time.
type OccupancyCollector struct {
	store     domain.PersistentStore
	occupancy *prometheus.Desc
	capacity  *prometheus.Desc
	animals   *prometheus.Desc
}

// NewOccupancyCollector builds a collector reading from store.
func NewOccupancyCollector(store domain.PersistentStore) *OccupancyCollector {
	return &OccupancyCollector{
		store: store,
		occupancy: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "enclosure", "occupancy"),
			"Current number of residents per enclosure.",
			[]string{"enclosure_id", "type"}, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "enclosure", "capacity"),
			"Configured capacity per enclosure.",
			[]string{"enclosure_id", "type"}, nil,
		),
		animals: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "animals", "total"),
			"Registered animals by health status.",
			[]string{"status"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.occupancy
	ch <- c.capacity
	ch <- c.animals
}

// Collect implements prometheus.Collector.
func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	for _, enc := range c.store.ListEnclosures() {
		labels := []string{enc.ID(), string(enc.Type())}
		ch <- prometheus.MustNewConstMetric(c.occupancy, prometheus.GaugeValue, float64(enc.Count()), labels...)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(enc.Capacity()), labels...)
	}
	byStatus := make(map[domain.AnimalStatus]int)
	for _, animal := range c.store.ListAnimals() {
		byStatus[animal.Status]++
	}
	for status, n := range byStatus {
		ch <- prometheus.MustNewConstMetric(c.animals, prometheus.GaugeValue, float64(n), string(status))
	}
}

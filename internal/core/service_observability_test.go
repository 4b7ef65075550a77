package core

import (
	"bytes"
	"context"
	"expvar"
	"strings"
	"sync"
	"testing"
	"time"

	"zoocore/pkg/domain"
)

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) has(call string) bool {
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

func TestServiceObservabilityCoversOperations(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}

	svc := newTestService(t,
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
	)

	enc := mustEnclosure(t, svc, "pen", domain.EnclosureCarnivore, 2)
	if !audit.has(OpCreateEnclosure, AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == enc.ID() && e.Entity == domain.EntityEnclosure && e.Action == domain.ActionCreate
	}) {
		t.Fatalf("expected audit entry for create_enclosure")
	}
	mustEnclosure(t, svc, "spare", domain.EnclosureCarnivore, 1)
	mustAnimal(t, svc, "leo", "")
	mustAnimal(t, svc, "nala", "pen")

	steps := []func() error{
		func() error { _, err := svc.GetEnclosure(ctx, "pen"); return err },
		func() error { svc.ListEnclosures(ctx); return nil },
		func() error { _, err := svc.GetAnimal(ctx, "leo"); return err },
		func() error { svc.ListAnimals(ctx); return nil },
		func() error { _, _, err := svc.AdmitAnimal(ctx, "leo", "pen"); return err },
		func() error { _, _, err := svc.UpdateAnimalStatus(ctx, "nala", domain.AnimalSick); return err },
		func() error { _, _, err := svc.TransferAnimal(ctx, "leo", "spare"); return err },
		func() error { _, _, err := svc.ReleaseAnimal(ctx, "leo"); return err },
		func() error { _, _, err := svc.CleanEnclosure(ctx, "pen"); return err },
		func() error { _, err := svc.Statistics(ctx); return err },
		func() error { _, err := svc.DeleteAnimal(ctx, "leo"); return err },
		func() error { _, err := svc.DeleteEnclosure(ctx, "spare"); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	successOps := []string{
		OpCreateEnclosure, OpGetEnclosure, OpListEnclosures, OpDeleteEnclosure, OpCleanEnclosure,
		OpCreateAnimal, OpGetAnimal, OpListAnimals, OpUpdateAnimalStatus, OpDeleteAnimal,
		OpAdmitAnimal, OpTransferAnimal, OpReleaseAnimal, OpStatistics,
	}
	for _, op := range successOps {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
		if !audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("expected audit success entry for %s", op)
		}
	}

	if _, err := svc.DeleteEnclosure(ctx, "missing"); err == nil {
		t.Fatalf("expected delete_enclosure error for missing id")
	}
	if !audit.has(OpDeleteEnclosure, AuditStatusError, func(e AuditEntry) bool { return e.EntityID == "missing" && e.Error != "" }) {
		t.Fatalf("expected audit error entry for delete_enclosure")
	}
	if !metrics.has(OpDeleteEnclosure, false) || !tracer.has(OpDeleteEnclosure, false) {
		t.Fatalf("expected failed delete_enclosure in metrics and traces")
	}
	if !logger.has("e:operation failed") {
		t.Fatalf("expected error log for failed operation, got %v", logger.calls)
	}
	if !logger.has("w:rule violation") {
		t.Fatalf("expected warning log for sick animal sharing, got %v", logger.calls)
	}
	if len(tracer.started) != len(tracer.ended) {
		t.Fatalf("unbalanced spans: %d started, %d ended", len(tracer.started), len(tracer.ended))
	}
}

func TestRecordAuditUsesClockAndIgnoresUnknownOperation(t *testing.T) {
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	recorder := &captureAuditRecorder{}
	svc := newTestService(t, WithAuditRecorder(recorder), WithClock(ClockFunc(func() time.Time { return fixed })))

	svc.recordAudit(context.Background(), OpTransferAnimal, "leo", 42*time.Millisecond, nil)
	svc.recordAudit(context.Background(), "unknown_operation", "x", time.Second, nil)

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Entity != domain.EntityAnimal || entry.Action != domain.ActionUpdate || entry.EntityID != "leo" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Duration != 42*time.Millisecond || !entry.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected timing %+v", entry)
	}
}

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	if opts.clock == nil || opts.logger == nil || opts.audit == nil || opts.metrics == nil || opts.tracer == nil || opts.ids == nil {
		t.Fatalf("expected defaults populated")
	}
	_ = opts.clock.Now()
	if opts.ids.NewID() == "" {
		t.Fatalf("expected generated id")
	}
	opts.audit.Record(context.Background(), AuditEntry{})
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)

	var l NopLogger
	l.Debug("d", "k", 1)
	l.Info("i", "k", 2)
	l.Warn("w", "k", 3)
	l.Error("e", "k", 4)

	// nil options keep defaults
	for _, opt := range []Option{WithClock(nil), WithLogger(nil), WithAuditRecorder(nil), WithMetricsRecorder(nil), WithTracer(nil), WithIDGenerator(nil), WithRule(nil), WithEventPublisher(nil)} {
		opt(&opts)
	}
	if opts.logger == nil || opts.events == nil || len(opts.rules) != 0 {
		t.Fatalf("nil options must not clear defaults")
	}
}

const (
	entryStatusSuccess = "success"
	entryStatusError   = "error"
)

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["test_op"] != 15 {
		t.Fatalf("expected 15ms total, snapshot=%+v", snapshot)
	}
	if snapshot.Results["test_op"][entryStatusSuccess] != 1 || snapshot.Results["test_op"][entryStatusError] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}
	if len(snapshot.Results) != 1 {
		t.Fatalf("empty operation must be ignored: %+v", snapshot.Results)
	}

	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "test_op") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf, 2)
	for _, op := range []string{"first", "second", "third"} {
		_, span := tracer.Start(context.Background(), op)
		span.End(nil)
	}
	_, failing := tracer.Start(context.Background(), "failing")
	failing.End(domain.ErrCapacityExceeded)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected retention limit of 2, got %d", len(entries))
	}
	if entries[0].Operation != "third" || entries[0].Status != entryStatusSuccess {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if entries[1].Status != entryStatusError || entries[1].Error != domain.ErrCapacityExceeded.Error() {
		t.Fatalf("unexpected failing span: %+v", entries[1])
	}
	if strings.Count(buf.String(), "\n") != 4 || !strings.Contains(buf.String(), "\"operation\":\"first\"") {
		t.Fatalf("expected every span written as a JSON line: %q", buf.String())
	}
}

func TestLogAuditRecorder(t *testing.T) {
	logger := &captureLogger{}
	rec := NewLogAuditRecorder(logger)
	rec.Record(context.Background(), AuditEntry{Operation: OpAdmitAnimal, Status: AuditStatusError, Error: "boom"})
	if !logger.has("i:audit") {
		t.Fatalf("expected audit log line, got %v", logger.calls)
	}
	NewLogAuditRecorder(nil).Record(context.Background(), AuditEntry{})
}

func TestMultiMetricsRecorderFansOut(t *testing.T) {
	a, b := &captureMetricsRecorder{}, &captureMetricsRecorder{}
	MultiMetricsRecorder{a, nil, b}.Observe(context.Background(), "op", true, time.Millisecond)
	if !a.has("op", true) || !b.has("op", true) {
		t.Fatalf("expected both recorders to observe")
	}
}

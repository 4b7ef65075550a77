package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zoocore/internal/adapters/census"
	"zoocore/internal/adapters/httpapi"
	"zoocore/internal/blob"
	"zoocore/internal/core"
)

// app holds the wired components of a running zoocore process.
type app struct {
	service *core.Service
	events  *core.EventBus
	census  *census.Exporter
	handler http.Handler
	logger  *slog.Logger
	closers []func() error
}

// buildApp opens storage and the blob store, wires the service with its
// observability hooks and assembles the HTTP routes.
func buildApp(ctx context.Context, cfg Config, logger *slog.Logger, traceOut io.Writer) (*app, error) {
	store, closeStore, err := core.OpenPersistentStore(ctx, cfg.Storage, nil)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a := &app{logger: logger, closers: []func() error{closeStore}}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		core.NewOccupancyCollector(store),
	)
	promRecorder, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register service metrics: %w", err)
	}
	httpMetrics, err := httpapi.NewHTTPMetrics(reg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	countEvents, err := core.NewPrometheusEventCounter(reg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register event metrics: %w", err)
	}
	a.events = core.NewEventBus(cfg.EventBuffer)
	a.events.Subscribe(core.LogEventHandler(logger))
	a.events.Subscribe(countEvents)

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithEventPublisher(a.events),
		core.WithAuditRecorder(core.NewLogAuditRecorder(logger)),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{
			promRecorder,
			core.NewExpvarMetricsRecorder(cfg.ExpvarName),
		}),
	}
	if traceOut != nil {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceOut, cfg.TraceLimit)))
	}
	a.service = core.NewService(store, opts...)

	if cfg.SeedDemo {
		if err := seedDemo(ctx, a.service, logger); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.census = census.NewExporter(a.service, blobs, census.WithLogger(logger))

	api := httpapi.NewHandler(a.service,
		httpapi.WithCensus(a.census),
		httpapi.WithEventLog(a.events),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		httpapi.WithHTTPMetrics(httpMetrics),
		httpapi.WithLogger(logger),
	)
	root := chi.NewRouter()
	root.Method(http.MethodGet, "/debug/vars", expvar.Handler())
	root.Mount("/", api)
	a.handler = root
	return a, nil
}

// Close releases storage handles in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// serve runs the HTTP server on ln until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func (a *app) serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	a.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

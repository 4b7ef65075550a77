// Package httpapi exposes the zoo service over a JSON REST API under /api/v1.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"zoocore/internal/adapters/census"
	"zoocore/internal/blob"
	"zoocore/internal/core"
	"zoocore/pkg/domain"
)

// Service is the application surface the handlers call. *core.Service
// satisfies it.
type Service interface {
	CreateEnclosure(ctx context.Context, input domain.EnclosureState) (*domain.Enclosure, domain.Result, error)
	GetEnclosure(ctx context.Context, id string) (*domain.Enclosure, error)
	ListEnclosures(ctx context.Context) []*domain.Enclosure
	DeleteEnclosure(ctx context.Context, id string) (domain.Result, error)
	CleanEnclosure(ctx context.Context, id string) (*domain.Enclosure, domain.Result, error)
	CreateAnimal(ctx context.Context, animal domain.Animal) (domain.Animal, domain.Result, error)
	GetAnimal(ctx context.Context, id string) (domain.Animal, error)
	ListAnimals(ctx context.Context) []domain.Animal
	UpdateAnimalStatus(ctx context.Context, id string, status domain.AnimalStatus) (domain.Animal, domain.Result, error)
	DeleteAnimal(ctx context.Context, id string) (domain.Result, error)
	AdmitAnimal(ctx context.Context, animalID, enclosureID string) (domain.Animal, domain.Result, error)
	TransferAnimal(ctx context.Context, animalID, toEnclosureID string) (domain.Animal, domain.Result, error)
	ReleaseAnimal(ctx context.Context, animalID string) (domain.Animal, domain.Result, error)
	Statistics(ctx context.Context) (core.Statistics, error)
	ScheduleFeeding(ctx context.Context, input domain.FeedingSchedule) (domain.FeedingSchedule, domain.Result, error)
	GetFeeding(ctx context.Context, id string) (domain.FeedingSchedule, error)
	ListFeedings(ctx context.Context, filter core.FeedingFilter) []domain.FeedingSchedule
	RescheduleFeeding(ctx context.Context, id string, at time.Time) (domain.FeedingSchedule, domain.Result, error)
	CompleteFeeding(ctx context.Context, id string) (domain.FeedingSchedule, domain.Result, error)
	CancelFeeding(ctx context.Context, id string) (domain.Result, error)
}

// CensusExporter produces, lists and serves census reports. *census.Exporter
// satisfies it.
type CensusExporter interface {
	Export(ctx context.Context) (census.Result, error)
	List(ctx context.Context) ([]blob.Info, error)
	Open(ctx context.Context, key string) (blob.Info, io.ReadCloser, error)
}

// EventLog exposes recently published domain events. *core.EventBus
// satisfies it.
type EventLog interface {
	Recent(n int) []core.Event
}

// Handler serves the REST API.
type Handler struct {
	service Service
	census  CensusExporter
	events  EventLog
	metrics http.Handler
	httpMet *HTTPMetrics
	logger  core.Logger
	router  chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithCensus enables the /api/v1/census endpoints.
func WithCensus(exporter CensusExporter) Option {
	return func(h *Handler) { h.census = exporter }
}

// WithEventLog enables GET /api/v1/events.
func WithEventLog(events EventLog) Option {
	return func(h *Handler) { h.events = events }
}

// WithMetricsHandler mounts the given handler at /metrics.
func WithMetricsHandler(metrics http.Handler) Option {
	return func(h *Handler) { h.metrics = metrics }
}

// WithHTTPMetrics instruments every API request.
func WithHTTPMetrics(m *HTTPMetrics) Option {
	return func(h *Handler) { h.httpMet = m }
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(logger core.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs the API handler and its routes.
func NewHandler(svc Service, opts ...Option) *Handler {
	h := &Handler{service: svc, logger: core.NopLogger{}}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	if h.httpMet != nil {
		r.Use(h.httpMet.Middleware)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/enclosures", func(r chi.Router) {
			r.Get("/", h.handleListEnclosures)
			r.Post("/", h.handleCreateEnclosure)
			r.Get("/{id}", h.handleGetEnclosure)
			r.Delete("/{id}", h.handleDeleteEnclosure)
			r.Post("/{id}/clean", h.handleCleanEnclosure)
		})
		r.Route("/animals", func(r chi.Router) {
			r.Get("/", h.handleListAnimals)
			r.Post("/", h.handleCreateAnimal)
			r.Get("/{id}", h.handleGetAnimal)
			r.Delete("/{id}", h.handleDeleteAnimal)
			r.Post("/{id}/admit", h.handleAdmitAnimal)
			r.Post("/{id}/transfer", h.handleTransferAnimal)
			r.Post("/{id}/release", h.handleReleaseAnimal)
			r.Patch("/{id}/status", h.handleUpdateStatus)
		})
		r.Route("/feedings", func(r chi.Router) {
			r.Get("/", h.handleListFeedings)
			r.Post("/", h.handleScheduleFeeding)
			r.Get("/{id}", h.handleGetFeeding)
			r.Patch("/{id}", h.handleRescheduleFeeding)
			r.Delete("/{id}", h.handleCancelFeeding)
			r.Post("/{id}/complete", h.handleCompleteFeeding)
		})
		r.Get("/statistics", h.handleStatistics)
		if h.events != nil {
			r.Get("/events", h.handleListEvents)
		}
		if h.census != nil {
			r.Get("/census", h.handleListCensus)
			r.Post("/census", h.handleExportCensus)
			r.Get("/census/*", h.handleDownloadCensus)
		}
	})
	return r
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

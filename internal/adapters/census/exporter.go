// Package census renders occupancy reports of every enclosure and stores
// them in the configured blob store.
package census

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"zoocore/internal/blob"
	"zoocore/internal/core"
	"zoocore/pkg/domain"
)

// Prefix is the key prefix all census reports are stored under.
const Prefix = "census/"

const keyTimeLayout = "20060102T150405.000Z"

var csvHeader = []string{"id", "type", "area_m2", "capacity", "occupancy", "free_slots", "residents"}

// Source provides the data a census is rendered from. *core.Service
// satisfies it.
type Source interface {
	Population(ctx context.Context) (core.Population, error)
}

// Row is one enclosure line of a census.
type Row struct {
	ID        string               `json:"id"`
	Type      domain.EnclosureType `json:"type"`
	AreaM2    float64              `json:"area_m2"`
	Capacity  int                  `json:"capacity"`
	Occupancy int                  `json:"occupancy"`
	FreeSlots int                  `json:"free_slots"`
	Residents []string             `json:"residents"`
}

// Report is the JSON form of a census.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Statistics  core.Statistics `json:"statistics"`
	Enclosures  []Row           `json:"enclosures"`
}

// Result lists the blobs written by one export.
type Result struct {
	Report    Report      `json:"report"`
	Artifacts []blob.Info `json:"artifacts"`
}

// Exporter writes census reports.
type Exporter struct {
	source Source
	store  blob.Store
	clock  core.Clock
	logger core.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the time source used for report timestamps and keys.
func WithClock(clock core.Clock) Option {
	return func(e *Exporter) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the exporter logger.
func WithLogger(logger core.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExporter constructs an exporter reading from source and writing to store.
func NewExporter(source Source, store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		source: source,
		store:  store,
		clock:  core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger: core.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export snapshots the zoo and stores census.json and census.csv under
// census/<timestamp>/.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	report, err := e.build(ctx)
	if err != nil {
		return Result{}, err
	}
	jsonPayload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal census: %w", err)
	}
	csvPayload, err := renderCSV(report.Enclosures)
	if err != nil {
		return Result{}, fmt.Errorf("render census csv: %w", err)
	}

	dir := path.Join(strings.TrimSuffix(Prefix, "/"), report.GeneratedAt.Format(keyTimeLayout))
	metadata := map[string]string{
		"enclosures": strconv.Itoa(len(report.Enclosures)),
		"animals":    strconv.Itoa(report.Statistics.TotalAnimals),
	}
	artifacts := make([]blob.Info, 0, 2)
	// A partial export is removed so List never shows half a census.
	cleanup := func() {
		for _, written := range artifacts {
			if _, err := e.store.Delete(context.WithoutCancel(ctx), written.Key); err != nil {
				e.logger.Warn("census cleanup failed", "key", written.Key, "error", err)
			}
		}
	}
	for _, item := range []struct {
		name        string
		contentType string
		payload     []byte
	}{
		{"census.json", "application/json", jsonPayload},
		{"census.csv", "text/csv", csvPayload},
	} {
		info, err := e.store.Put(ctx, path.Join(dir, item.name), bytes.NewReader(item.payload), blob.PutOptions{
			ContentType: item.contentType,
			Metadata:    metadata,
		})
		if err != nil {
			e.logger.Error("census export failed", "key", path.Join(dir, item.name), "error", err)
			cleanup()
			return Result{}, fmt.Errorf("store %s: %w", item.name, err)
		}
		artifacts = append(artifacts, info)
	}
	e.logger.Info("census exported", "prefix", dir, "enclosures", len(report.Enclosures), "driver", string(e.store.Driver()))
	return Result{Report: report, Artifacts: artifacts}, nil
}

// List returns every stored census artifact ordered by key.
func (e *Exporter) List(ctx context.Context) ([]blob.Info, error) {
	return e.store.List(ctx, Prefix)
}

// Open returns a stored census artifact. Keys outside Prefix are reported as
// not found. The caller closes the returned reader.
func (e *Exporter) Open(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	if !strings.HasPrefix(key, Prefix) || strings.Contains(key, "..") {
		return blob.Info{}, nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	return e.store.Get(ctx, key)
}

func (e *Exporter) build(ctx context.Context) (Report, error) {
	pop, err := e.source.Population(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("census population: %w", err)
	}
	rows := make([]Row, 0, len(pop.Enclosures))
	for _, enclosure := range pop.Enclosures {
		state := enclosure.State()
		rows = append(rows, Row{
			ID:        state.ID,
			Type:      state.Type,
			AreaM2:    state.AreaM2,
			Capacity:  state.Capacity,
			Occupancy: len(state.Animals),
			FreeSlots: state.Capacity - len(state.Animals),
			Residents: state.Animals,
		})
	}
	return Report{GeneratedAt: e.clock.Now().UTC(), Statistics: pop.Statistics, Enclosures: rows}, nil
}

func renderCSV(rows []Row) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.ID,
			string(row.Type),
			strconv.FormatFloat(row.AreaM2, 'f', -1, 64),
			strconv.Itoa(row.Capacity),
			strconv.Itoa(row.Occupancy),
			strconv.Itoa(row.FreeSlots),
			strings.Join(row.Residents, ";"),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/observability"
)

// StationSaver writes coded stations back to the registry so later runs see
// their codes as taken.
type StationSaver interface {
	SaveStations(ctx context.Context, records []domain.StationRecord) (int, error)
}

// Publisher announces coded stations to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, records []domain.StationRecord) error
}

// SourceOpener resolves a location (file path or table reference) to an
// intake table. The returned close function releases it.
type SourceOpener func(ctx context.Context, location string) (SourceTable, func() error, error)

// ManagerOptions carries the optional stages of a run.
type ManagerOptions struct {
	Saver     StationSaver
	Publisher Publisher
	Opener    SourceOpener
}

// RunReport summarizes one import-export run.
type RunReport struct {
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Stations    int           `json:"stations"`
	Persisted   int           `json:"persisted"`
	Published   bool          `json:"published"`
	Export      ExportReport  `json:"export"`
	Duration    time.Duration `json:"duration_ns"`
}

// Manager owns the per-run sequence cache and sequences import, persistence,
// export and publication. Only one run may be in flight at a time.
type Manager struct {
	importer  *Importer
	exporter  *Exporter
	saver     StationSaver
	publisher Publisher
	opener    SourceOpener
	cache     *domain.SequenceCache
	running   atomic.Bool
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewManager creates a Manager with a fresh sequence cache.
func NewManager(importer *Importer, exporter *Exporter, opts ManagerOptions, logger *slog.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		importer:  importer,
		exporter:  exporter,
		saver:     opts.Saver,
		publisher: opts.Publisher,
		opener:    opts.Opener,
		cache:     domain.NewSequenceCache(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Running reports whether a run is in flight.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// RunLocation opens location with the configured SourceOpener and runs it.
func (m *Manager) RunLocation(ctx context.Context, location, dest string) (RunReport, error) {
	if m.opener == nil {
		return RunReport{}, fmt.Errorf("%w: no source opener configured", domain.ErrValidation)
	}
	if m.Running() {
		return RunReport{}, domain.ErrRunInProgress
	}

	src, closeSrc, err := m.opener(ctx, location)
	if err != nil {
		return RunReport{}, err
	}
	defer func() {
		if err := closeSrc(); err != nil {
			m.logger.Warn("close source failed", "source", location, "error", err)
		}
	}()

	return m.Run(ctx, src, dest)
}

// Run imports the pending stations of src, persists them when a saver is
// configured, exports them to dest and publishes them when a publisher is
// configured. dest is checked before anything is coded or persisted. A second
// call while a run is in flight fails with domain.ErrRunInProgress.
func (m *Manager) Run(ctx context.Context, src SourceTable, dest string) (RunReport, error) {
	if !m.running.CompareAndSwap(false, true) {
		return RunReport{}, domain.ErrRunInProgress
	}
	defer m.running.Store(false)

	m.metrics.RunInProgress.Set(1)
	defer m.metrics.RunInProgress.Set(0)

	start := time.Now()
	report := RunReport{Source: src.Name(), Destination: dest}
	m.logger.Info("run started", "source", report.Source, "destination", dest)

	if err := m.exporter.Check(dest); err != nil {
		return report, err
	}

	records, err := m.importer.Import(ctx, src, m.cache)
	if err != nil {
		return report, err
	}
	report.Stations = len(records)

	if m.saver != nil && len(records) > 0 {
		n, err := m.saver.SaveStations(ctx, records)
		if err != nil {
			return report, fmt.Errorf("persist stations: %w", err)
		}
		report.Persisted = n
		m.metrics.StationsPersisted.Add(float64(n))
	}

	report.Export, err = m.exporter.Export(ctx, records, dest)
	if err != nil {
		return report, err
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, records); err != nil {
			m.metrics.PublishErrors.Inc()
			m.logger.Error("publish coded stations failed", "error", err, "stations", len(records))
		} else {
			report.Published = true
		}
	}

	report.Duration = time.Since(start)
	m.metrics.RunDuration.Observe(report.Duration.Seconds())
	m.logger.Info("run complete",
		"source", report.Source,
		"destination", dest,
		"stations", report.Stations,
		"written", report.Export.Written,
		"failed", report.Export.Failed,
		"duration", report.Duration,
	)
	return report, nil
}

// Inspect reports the persisted usage of one quadrant.
func (m *Manager) Inspect(ctx context.Context, prefix string) (QuadrantUsage, error) {
	return m.importer.Generator().Inspect(ctx, prefix)
}

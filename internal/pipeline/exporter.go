package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/observability"
)

// Sink writes coded records to one destination format.
type Sink interface {
	// Format labels the sink in reports and metrics.
	Format() string

	// Write persists records to dest. Per-row failures are collected in the
	// report; the error is reserved for failures that prevent any row from
	// being written.
	Write(ctx context.Context, records []domain.StationRecord, dest string) (ExportReport, error)
}

// DestinationChecker is implemented by sinks that can reject a destination
// before any station is coded.
type DestinationChecker interface {
	CheckDestination(dest string) error
}

// RowOutcome records what happened to one exported station.
type RowOutcome struct {
	Station   string `json:"station"`
	Error     string `json:"error,omitempty"`
	Statement string `json:"statement,omitempty"`
}

// ExportReport summarizes one export.
type ExportReport struct {
	Destination string       `json:"destination"`
	Format      string       `json:"format"`
	Written     int          `json:"written"`
	Failed      int          `json:"failed"`
	Failures    []RowOutcome `json:"failures,omitempty"`
}

// Succeed counts one written row.
func (r *ExportReport) Succeed() {
	r.Written++
}

// Fail records a row that could not be written, with the statement that was
// attempted when there is one.
func (r *ExportReport) Fail(station string, err error, statement string) {
	r.Failed++
	r.Failures = append(r.Failures, RowOutcome{Station: station, Error: err.Error(), Statement: statement})
}

// Exporter dispatches records to a Sink chosen by the destination extension.
type Exporter struct {
	sinks   map[string]Sink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExporter creates an Exporter. sinks maps lower-case file extensions,
// including the dot, to the sink that handles them.
func NewExporter(sinks map[string]Sink, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{sinks: sinks, logger: logger, metrics: metrics}
}

// Extensions lists the destination extensions the exporter accepts.
func (e *Exporter) Extensions() []string {
	exts := make([]string, 0, len(e.sinks))
	for ext := range e.sinks {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Sink returns the sink registered for the extension of dest.
func (e *Exporter) Sink(dest string) (Sink, error) {
	ext := strings.ToLower(filepath.Ext(dest))
	sink, ok := e.sinks[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (accepted: %s)", domain.ErrUnsupportedFormat, ext, strings.Join(e.Extensions(), ", "))
	}
	return sink, nil
}

// Check reports whether dest can be exported to without writing anything.
func (e *Exporter) Check(dest string) error {
	_, err := e.check(dest)
	return err
}

func (e *Exporter) check(dest string) (Sink, error) {
	sink, err := e.Sink(dest)
	if err != nil {
		return nil, err
	}
	if c, ok := sink.(DestinationChecker); ok {
		if err := c.CheckDestination(dest); err != nil {
			return nil, err
		}
	}
	return sink, nil
}

// Export writes records to dest. An empty record set or an unknown extension
// is a validation error and nothing is written.
func (e *Exporter) Export(ctx context.Context, records []domain.StationRecord, dest string) (ExportReport, error) {
	if len(records) == 0 {
		return ExportReport{}, fmt.Errorf("%w: no stations to export", domain.ErrValidation)
	}

	sink, err := e.check(dest)
	if err != nil {
		return ExportReport{}, err
	}

	report, err := sink.Write(ctx, records, dest)
	if err != nil {
		e.logger.Error("export failed", "destination", dest, "format", sink.Format(), "error", err)
		return report, err
	}
	report.Destination = dest
	report.Format = sink.Format()

	for _, f := range report.Failures {
		e.logger.Warn("export row failed",
			"station", f.Station,
			"error", f.Error,
			"statement", f.Statement,
		)
	}
	e.metrics.ExportRows.WithLabelValues(report.Format, "written").Add(float64(report.Written))
	e.metrics.ExportRows.WithLabelValues(report.Format, "failed").Add(float64(report.Failed))

	e.logger.Info("export complete",
		"destination", dest,
		"format", report.Format,
		"written", report.Written,
		"failed", report.Failed,
	)
	return report, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/observability"
)

// SourceTable is an intake table of stations, some of them still uncoded.
type SourceTable interface {
	// Name identifies the table in logs and errors.
	Name() string

	// Columns returns the header. A table that does not exist is reported
	// with an error wrapping domain.ErrSchema.
	Columns(ctx context.Context) ([]string, error)

	// Rows returns every row in source order, aligned with Columns.
	Rows(ctx context.Context) ([][]any, error)
}

// DefaultCategory is the station type coded when none is configured: rainfall.
const DefaultCategory = 2

// Importer turns the pending rows of an intake table into coded, enriched
// station records.
type Importer struct {
	store      CodeStore
	generator  *Generator
	boundaries domain.Boundaries
	category   int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewImporter creates an Importer. A nil boundaries value disables enrichment.
func NewImporter(store CodeStore, boundaries domain.Boundaries, category int, logger *slog.Logger, metrics *observability.Metrics) *Importer {
	if category == 0 {
		category = DefaultCategory
	}
	return &Importer{
		store:      store,
		generator:  NewGenerator(store, logger, metrics),
		boundaries: boundaries,
		category:   category,
		logger:     logger,
		metrics:    metrics,
	}
}

// Generator exposes the code generator the importer allocates with.
func (im *Importer) Generator() *Generator {
	return im.generator
}

// Import codes every row of src whose code column is empty. cache is reset
// first and then collects the sequences handed out, so codes generated within
// one import never collide. Any failure aborts the whole import and no records
// are returned.
func (im *Importer) Import(ctx context.Context, src SourceTable, cache *domain.SequenceCache) ([]domain.StationRecord, error) {
	cache.Reset()

	records, err := im.importRows(ctx, src, cache)
	if err != nil {
		im.metrics.ImportFailures.Inc()
		im.logger.Error("import aborted", "table", src.Name(), "error", err)
		return nil, err
	}

	im.metrics.StationsImported.Add(float64(len(records)))
	im.logger.Info("import complete",
		"table", src.Name(),
		"stations", len(records),
		"quadrants", cache.Len(),
	)
	return records, nil
}

func (im *Importer) importRows(ctx context.Context, src SourceTable, cache *domain.SequenceCache) ([]domain.StationRecord, error) {
	header, err := src.Columns(ctx)
	if err != nil {
		return nil, readError(src, err)
	}
	idx := domain.MakeHeaderIndex(header)
	if missing := idx.Missing(domain.RequiredIntakeColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: table %s lacks columns %s", domain.ErrSchema, src.Name(), strings.Join(missing, ", "))
	}

	maxID, err := im.store.MaxRegistryID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry id: %w", err)
	}

	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, readError(src, err)
	}

	var (
		records []domain.StationRecord
		labels  []string
	)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !domain.IsPending(row, idx) {
			continue
		}

		label := domain.DescribeRow(row, idx, i+1)
		rec, err := im.codeRow(ctx, row, idx, cache)
		if err != nil {
			return nil, &domain.StationError{Station: label, Err: err}
		}
		records = append(records, rec)
		labels = append(labels, label)
	}

	if err := assignRegistryIDs(records, labels, maxID); err != nil {
		return nil, err
	}
	return records, nil
}

// assignRegistryIDs keeps carried ids and numbers the remaining records above
// both the store maximum and every carried id. A carried id may appear once.
func assignRegistryIDs(records []domain.StationRecord, labels []string, maxID int64) error {
	carried := make(map[int64]string)
	nextID := maxID + 1
	for i, rec := range records {
		if rec.RegistryID == 0 {
			continue
		}
		if first, dup := carried[rec.RegistryID]; dup {
			return &domain.StationError{
				Station: labels[i],
				Err:     fmt.Errorf("%w: registry id %d already carried by %q", domain.ErrValidation, rec.RegistryID, first),
			}
		}
		carried[rec.RegistryID] = labels[i]
		nextID = max(nextID, rec.RegistryID+1)
	}

	for i := range records {
		if records[i].RegistryID == 0 {
			records[i].RegistryID = nextID
			nextID++
		}
	}
	return nil
}

func (im *Importer) codeRow(ctx context.Context, row []any, idx domain.HeaderIndex, cache *domain.SequenceCache) (domain.StationRecord, error) {
	rec, err := domain.ParseIntakeRow(row, idx)
	if err != nil {
		return rec, err
	}

	code, err := im.generator.Generate(ctx, rec.Latitude, rec.Longitude, cache)
	if err != nil {
		return rec, err
	}
	rec.Code = code
	rec.Category = im.category

	rec, result := domain.EnrichWithBoundaries(rec, im.boundaries, im.logger)
	im.metrics.Enrichment.WithLabelValues("sub_basin", result.SubBasin).Inc()
	im.metrics.Enrichment.WithLabelValues("municipality", result.Municipality).Inc()

	rec.CodedAt = domain.Now()
	return rec, nil
}

func readError(src SourceTable, err error) error {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: read %s: %w", domain.ErrImport, src.Name(), err)
}

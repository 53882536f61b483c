// Package xlsx exports coded stations as an Excel workbook.
package xlsx

import (
	"context"
	"fmt"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single sheet written to every workbook.
const SheetName = "Estacoes_Codificadas"

// Sink writes one workbook per export: a header row of canonical columns
// followed by one row per station.
type Sink struct{}

// NewSink creates a spreadsheet sink.
func NewSink() *Sink { return &Sink{} }

// Format implements pipeline.Sink.
func (s *Sink) Format() string { return "xlsx" }

// Write creates dest, replacing any existing file.
func (s *Sink) Write(ctx context.Context, records []domain.StationRecord, dest string) (pipeline.ExportReport, error) {
	var report pipeline.ExportReport

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return report, fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return report, fmt.Errorf("open sheet: %w", err)
	}

	header := make([]any, len(domain.CanonicalColumns))
	for i, c := range domain.CanonicalColumns {
		header[i] = excelize.Cell{Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return report, fmt.Errorf("write header: %w", err)
	}

	rowNum := 2
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return report, err
		}
		if err := sw.SetRow(cell, sheetRow(rec)); err != nil {
			report.Fail(rec.Name, fmt.Errorf("%w: %w", domain.ErrExportRow, err), "row "+cell)
			continue
		}
		report.Succeed()
		rowNum++
	}

	if err := sw.Flush(); err != nil {
		return report, fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(dest); err != nil {
		return report, fmt.Errorf("save %s: %w", dest, err)
	}
	return report, nil
}

// sheetRow renders a canonical row. The station code stays text so Excel keeps
// its leading zero.
func sheetRow(rec domain.StationRecord) []any {
	row := domain.CanonicalRow(rec)
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			out[i] = nil
			continue
		}
		if domain.CanonicalColumns[i] == domain.ColCode {
			out[i] = excelize.Cell{Value: domain.CellString(v)}
			continue
		}
		out[i] = v
	}
	return out
}

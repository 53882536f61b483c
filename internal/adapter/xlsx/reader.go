package xlsx

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Table reads an intake table from one sheet of a workbook. The first row is
// the header. Cells are read as displayed text.
type Table struct {
	path  string
	sheet string
	file  *excelize.File
}

// Open opens the workbook at path. An empty sheet selects the first sheet.
func Open(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrImport, path, err)
	}
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	return &Table{path: path, sheet: sheet, file: f}, nil
}

// Name returns the file and sheet name.
func (t *Table) Name() string {
	return filepath.Base(t.path) + ":" + t.sheet
}

// Close releases the workbook.
func (t *Table) Close() error {
	return t.file.Close()
}

// Columns returns the header row.
func (t *Table) Columns(_ context.Context) ([]string, error) {
	rows, err := t.rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s has no header row", domain.ErrSchema, t.sheet)
	}
	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.TrimSpace(c)
	}
	return header, nil
}

// Rows returns the data rows padded to the header width. Blank cells are nil.
func (t *Table) Rows(ctx context.Context) ([][]any, error) {
	rows, err := t.rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(rows[0])
	out := make([][]any, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBlank(rec) {
			continue
		}
		row := make([]any, max(width, len(rec)))
		for i, v := range rec {
			if strings.TrimSpace(v) != "" {
				row[i] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (t *Table) rows() ([][]string, error) {
	if !slices.Contains(t.file.GetSheetList(), t.sheet) {
		return nil, fmt.Errorf("%w: sheet %s not found in %s", domain.ErrSchema, t.sheet, filepath.Base(t.path))
	}
	rows, err := t.file.GetRows(t.sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrImport, t.sheet, err)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

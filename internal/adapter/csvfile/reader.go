// Package csvfile reads intake tables from delimited text files.
package csvfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is an intake table backed by a CSV file with a header row. The file
// is read once, on first use. Comma and semicolon delimiters are detected
// from the header line.
type Table struct {
	path   string
	header []string
	rows   [][]any
	loaded bool
}

// Open returns a Table for path. The file must exist.
func Open(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrImport, path, err)
	}
	return &Table{path: path}, nil
}

// Name returns the file's base name.
func (t *Table) Name() string {
	return filepath.Base(t.path)
}

// Columns returns the header row.
func (t *Table) Columns(ctx context.Context) ([]string, error) {
	if err := t.load(ctx); err != nil {
		return nil, err
	}
	return t.header, nil
}

// Rows returns the data rows. Blank cells are nil.
func (t *Table) Rows(ctx context.Context) ([][]any, error) {
	if err := t.load(ctx); err != nil {
		return nil, err
	}
	return t.rows, nil
}

func (t *Table) load(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", t.path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse %s: %w", t.path, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s has no header row", domain.ErrSchema, t.path)
	}

	t.header = records[0]
	t.rows = make([][]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]any, len(t.header))
		for i := range row {
			if i < len(rec) && strings.TrimSpace(rec[i]) != "" {
				row[i] = rec[i]
			}
		}
		t.rows = append(t.rows, row)
	}
	t.loaded = true
	return nil
}

func detectDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

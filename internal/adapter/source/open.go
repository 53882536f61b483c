// Package source resolves intake locations to tables by file extension.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/adapter/csvfile"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/sqlitefile"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/xlsx"
	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
)

// Extensions lists the accepted intake file extensions.
var Extensions = []string{".csv", ".db", ".sqlite", ".xlsx"}

// Options names the table read from each container format.
type Options struct {
	Table string // SQLite table, default sqlitefile.IntakeTable
	Sheet string // workbook sheet, default the first sheet
}

// Opener returns a pipeline.SourceOpener that picks the reader from the
// location's extension.
func Opener(opts Options) pipeline.SourceOpener {
	return func(_ context.Context, location string) (pipeline.SourceTable, func() error, error) {
		switch ext := strings.ToLower(filepath.Ext(location)); ext {
		case ".csv":
			t, err := csvfile.Open(location)
			if err != nil {
				return nil, nil, err
			}
			return t, func() error { return nil }, nil
		case ".sqlite", ".db":
			t, err := sqlitefile.OpenIntake(location, opts.Table)
			if err != nil {
				return nil, nil, err
			}
			return t, t.Close, nil
		case ".xlsx":
			t, err := xlsx.Open(location, opts.Sheet)
			if err != nil {
				return nil, nil, err
			}
			return t, t.Close, nil
		default:
			return nil, nil, fmt.Errorf("%w: intake %q (accepted: %s)",
				domain.ErrUnsupportedFormat, ext, strings.Join(Extensions, ", "))
		}
	}
}

// Package sqlitefile reads intake tables from, and exports coded stations to,
// single-file SQLite databases.
package sqlitefile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	// IntakeTable holds the stations awaiting codes.
	IntakeTable = "Estacoes_Novas"

	// ExportTable receives coded stations in the export template.
	ExportTable = "Estacoes_Codificadas"
)

// Intake reads one table of an existing SQLite file.
type Intake struct {
	db    *sql.DB
	path  string
	table string
}

// OpenIntake opens the file at path for reading table. The file must exist;
// the table is checked lazily by Columns.
func OpenIntake(path, table string) (*Intake, error) {
	if table == "" {
		table = IntakeTable
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrImport, path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrImport, path, err)
	}
	return &Intake{db: db, path: path, table: table}, nil
}

// Name returns the table name.
func (in *Intake) Name() string {
	return in.table
}

// Close releases the database handle.
func (in *Intake) Close() error {
	return in.db.Close()
}

// Columns returns the table's columns in declaration order.
func (in *Intake) Columns(ctx context.Context) ([]string, error) {
	cols, err := tableColumns(ctx, in.db, in.table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s has no table %s", domain.ErrSchema, in.path, in.table)
	}
	return cols, nil
}

// Rows returns every row of the table.
func (in *Intake) Rows(ctx context.Context) ([][]any, error) {
	rows, err := in.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(in.table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", in.table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", in.table, err)
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// tableColumns lists the columns of table, or none when it does not exist.
func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("inspect %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	return cols, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

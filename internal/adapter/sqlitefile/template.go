package sqlitefile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
)

// TemplateDDL returns the CREATE TABLE statement of the export table: every
// canonical column, integers where the export coerces to integers, the station
// name mandatory and the registry id as primary key.
func TemplateDDL() string {
	defs := make([]string, 0, len(domain.CanonicalColumns))
	for _, col := range domain.CanonicalColumns {
		var def string
		switch {
		case col == domain.ColRegistryID:
			def = "INTEGER PRIMARY KEY"
		case col == domain.ColName:
			def = "TEXT NOT NULL"
		case domain.IsIntegerColumn(col):
			def = "INTEGER"
		default:
			def = "TEXT"
		}
		defs = append(defs, "    "+quoteIdent(col)+" "+def)
	}
	return "CREATE TABLE " + quoteIdent(ExportTable) + " (\n" + strings.Join(defs, ",\n") + "\n)"
}

// CreateTemplate writes an empty export template to path. An existing file is
// never overwritten.
func CreateTemplate(ctx context.Context, path string) error {
	return createDatabase(ctx, path, TemplateDDL())
}

func createDatabase(ctx context.Context, path, ddl string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("create %s: %w", path, os.ErrExist)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table in %s: %w", path, err)
	}
	return nil
}

// IntakeDDL returns the CREATE TABLE statement of a blank intake table.
func IntakeDDL(table string) string {
	if table == "" {
		table = IntakeTable
	}
	cols := domain.IntakeColumns()
	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		var def string
		switch {
		case col == domain.ColName:
			def = "TEXT NOT NULL"
		case col == domain.ColLatitude, col == domain.ColLongitude, col == "Altitude", col == "AreaDrenagem":
			def = "REAL"
		case domain.IsIntegerColumn(col):
			def = "INTEGER"
		default:
			def = "TEXT"
		}
		defs = append(defs, "    "+quoteIdent(col)+" "+def)
	}
	return "CREATE TABLE " + quoteIdent(table) + " (\n" + strings.Join(defs, ",\n") + "\n)"
}

// CreateIntake writes a blank intake file to path for stations awaiting codes.
// An existing file is never overwritten.
func CreateIntake(ctx context.Context, path, table string) error {
	return createDatabase(ctx, path, IntakeDDL(table))
}

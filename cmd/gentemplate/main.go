// Command gentemplate writes the blank SQLite files used around a coding run:
// the export template that structured-file exports copy, and an intake file
// field staff fill with new stations.
//
// Usage:
//
//	go run ./cmd/gentemplate \
//	  -template data/templates/estacoes_codificadas.sqlite \
//	  -intake data/intake/estacoes_novas.sqlite
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/rain-station-coding/internal/adapter/sqlitefile"
	"github.com/couchcryptid/rain-station-coding/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	template := flag.String("template", "", "output path for the export template")
	intake := flag.String("intake", "", "output path for a blank intake file")
	table := flag.String("intake-table", sqlitefile.IntakeTable, "intake table name")
	flag.Parse()

	if *template == "" && *intake == "" {
		flag.Usage()
		return fmt.Errorf("missing flags: at least one of -template, -intake")
	}

	ctx := context.Background()

	if *template != "" {
		if err := mkdirFor(*template); err != nil {
			return err
		}
		if err := sqlitefile.CreateTemplate(ctx, *template); err != nil {
			return fmt.Errorf("writing template: %w", err)
		}
		log.Printf("wrote export template: %s (%s, %d columns)",
			*template, sqlitefile.ExportTable, len(domain.CanonicalColumns))
	}

	if *intake != "" {
		if err := mkdirFor(*intake); err != nil {
			return err
		}
		if err := sqlitefile.CreateIntake(ctx, *intake, *table); err != nil {
			return fmt.Errorf("writing intake: %w", err)
		}
		log.Printf("wrote intake file: %s (%s, %d columns)",
			*intake, *table, len(domain.IntakeColumns()))
	}
	return nil
}

func mkdirFor(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Command validate checks an exported file of coded stations: the column
// layout matches the export schema, every code is well formed and unique, each
// code's quadrant agrees with the station's coordinates and registry ids are
// unique.
//
// Usage:
//
//	go run ./cmd/validate -file data/out/estacoes_codificadas.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/adapter/source"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/sqlitefile"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/xlsx"
	"github.com/couchcryptid/rain-station-coding/internal/domain"
)

var codePattern = regexp.MustCompile(`^0\d{7,9}$`)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// exportFile is a loaded export: header index plus data rows.
type exportFile struct {
	columns []string
	index   domain.HeaderIndex
	rows    [][]any
}

// line returns the 1-based file line of data row i (the header is line 1).
func (f *exportFile) line(i int) int { return i + 2 }

func main() {
	file := flag.String("file", "", "exported file to validate (.xlsx, .sqlite, .db, .csv)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	ef, err := loadExport(context.Background(), *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", *file, err)
		os.Exit(1)
	}

	if code := run(os.Stdout, ef); code != 0 {
		os.Exit(code)
	}
}

func loadExport(ctx context.Context, path string) (*exportFile, error) {
	open := source.Opener(source.Options{Table: sqlitefile.ExportTable, Sheet: xlsx.SheetName})
	tbl, closeFn, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()

	cols, err := tbl.Columns(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return &exportFile{columns: cols, index: domain.MakeHeaderIndex(cols), rows: rows}, nil
}

func run(w io.Writer, ef *exportFile) int {
	fmt.Fprintln(w, "=== Coded Station Export Validation ===")
	fmt.Fprintln(w)

	phases := []*phase{
		validateSchema(ef),
		validateCodes(ef),
		validateQuadrants(ef),
		validateRegistryIDs(ef),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stations: %d\n", len(ef.rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Schema ──

func validateSchema(ef *exportFile) *phase {
	p := &phase{name: "Phase 1: Schema (canonical columns)"}

	if slices.Equal(ef.columns, domain.CanonicalColumns) {
		return p
	}
	for _, col := range domain.CanonicalColumns {
		if !ef.index.Has(col) {
			p.errorf("missing column %q", col)
		}
	}
	canonical := domain.MakeHeaderIndex(domain.CanonicalColumns)
	for _, col := range ef.columns {
		if !canonical.Has(col) {
			p.errorf("unexpected column %q", col)
		}
	}
	if p.passed() {
		p.errorf("columns out of order: got %s", strings.Join(ef.columns, ", "))
	}
	return p
}

// ── Phase 2: Codes ──

func validateCodes(ef *exportFile) *phase {
	p := &phase{name: "Phase 2: Codes (format, uniqueness)"}

	seen := map[string]int{}
	for i, row := range ef.rows {
		code := domain.CellString(ef.index.Cell(row, domain.ColCode))
		if !codePattern.MatchString(code) {
			p.errorf("line %d: code %q does not match %s", ef.line(i), code, codePattern)
			continue
		}
		n, _ := domain.ParseCode(code)
		if seq := domain.SequenceOf(n); seq < 1 || seq > domain.MaxSequence {
			p.errorf("line %d: code %s has sequence %d", ef.line(i), code, seq)
		}
		if first, dup := seen[code]; dup {
			p.errorf("line %d: code %s already used on line %d", ef.line(i), code, first)
			continue
		}
		seen[code] = ef.line(i)
	}
	return p
}

// ── Phase 3: Quadrants ──
// Re-derives each prefix from the exported coordinates.

func validateQuadrants(ef *exportFile) *phase {
	p := &phase{name: "Phase 3: Quadrants (prefix vs coordinates)"}

	for i, row := range ef.rows {
		code := domain.CellString(ef.index.Cell(row, domain.ColCode))
		if !codePattern.MatchString(code) {
			continue // reported in phase 2
		}
		lat, err := domain.ParseCoordinate("latitude", ef.index.Cell(row, domain.ColLatitude))
		if err != nil {
			p.errorf("line %d: %v", ef.line(i), err)
			continue
		}
		lon, err := domain.ParseCoordinate("longitude", ef.index.Cell(row, domain.ColLongitude))
		if err != nil {
			p.errorf("line %d: %v", ef.line(i), err)
			continue
		}
		prefix, err := domain.QuadrantPrefix(lat, lon)
		if err != nil {
			p.errorf("line %d: %v", ef.line(i), err)
			continue
		}
		if domain.QuadrantOf(code) != prefix {
			p.errorf("line %d: code %s outside quadrant %s of (%g, %g)", ef.line(i), code, prefix, lat, lon)
		}
	}
	return p
}

// ── Phase 4: Registry ids ──

func validateRegistryIDs(ef *exportFile) *phase {
	p := &phase{name: "Phase 4: Registry ids (positive, unique)"}

	seen := map[int64]int{}
	for i, row := range ef.rows {
		id := domain.ParseIntCode(ef.index.Cell(row, domain.ColRegistryID))
		if id == nil || *id <= 0 {
			p.errorf("line %d: registry id %v is not a positive integer", ef.line(i), ef.index.Cell(row, domain.ColRegistryID))
			continue
		}
		if first, dup := seen[*id]; dup {
			p.errorf("line %d: registry id %d already used on line %d", ef.line(i), *id, first)
			continue
		}
		seen[*id] = ef.line(i)
	}
	return p
}

package sqlitefile

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
)

// TemplateSink exports to a copy of a pre-built SQLite template.
type TemplateSink struct {
	template string
	logger   *slog.Logger
}

// NewTemplateSink creates a sink that copies template for every export.
func NewTemplateSink(template string, logger *slog.Logger) *TemplateSink {
	return &TemplateSink{template: template, logger: logger}
}

// Format implements pipeline.Sink.
func (s *TemplateSink) Format() string { return "sqlite" }

// CheckDestination implements pipeline.DestinationChecker. The template must
// exist and dest must not be the template itself.
func (s *TemplateSink) CheckDestination(dest string) error {
	if s.template == "" {
		return fmt.Errorf("%w: no template configured", domain.ErrTemplateMissing)
	}
	info, err := os.Stat(s.template)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrTemplateMissing, s.template, err)
	}
	if sameFile(info, s.template, dest) {
		return fmt.Errorf("%w: destination %s is the export template", domain.ErrValidation, dest)
	}
	return nil
}

// Write copies the template to dest and inserts one row per record into the
// export table within a single transaction. A row the database rejects is
// recorded in the report and the remaining rows are still inserted. When the
// export fails as a whole, dest is removed.
func (s *TemplateSink) Write(ctx context.Context, records []domain.StationRecord, dest string) (report pipeline.ExportReport, err error) {
	if err = s.CheckDestination(dest); err != nil {
		return report, err
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := os.Remove(dest); rerr != nil && !os.IsNotExist(rerr) {
			s.logger.Warn("remove failed export", "destination", dest, "error", rerr)
		}
	}()

	if err = copyFile(s.template, dest); err != nil {
		return report, fmt.Errorf("%w: %s to %s: %w", domain.ErrTemplateCopy, s.template, dest, err)
	}

	db, err := sql.Open("sqlite", dest)
	if err != nil {
		return report, fmt.Errorf("%w: open %s: %w", domain.ErrTemplateCopy, dest, err)
	}
	defer func() { _ = db.Close() }()

	tableCols, err := tableColumns(ctx, db, ExportTable)
	if err != nil {
		return report, fmt.Errorf("%w: open %s: %w", domain.ErrTemplateCopy, dest, err)
	}
	if len(tableCols) == 0 {
		return report, fmt.Errorf("%w: %s has no table %s", domain.ErrTemplateMissing, s.template, ExportTable)
	}

	cols, positions := s.insertColumns(tableCols)
	stmtSQL := insertSQL(cols)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return report, fmt.Errorf("prepare export: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		row := domain.CanonicalRow(rec)
		args := make([]any, len(cols))
		for i, pos := range positions {
			args[i] = domain.CoerceForTemplate(cols[i], row[pos])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			report.Fail(rec.Name, fmt.Errorf("%w: %w", domain.ErrExportRow, err), stmtSQL)
			continue
		}
		report.Succeed()
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit export: %w", err)
	}
	return report, nil
}

// insertColumns keeps the canonical columns the template actually has, in
// canonical order, with their index in a canonical row.
func (s *TemplateSink) insertColumns(tableCols []string) ([]string, []int) {
	present := make(map[string]struct{}, len(tableCols))
	for _, c := range tableCols {
		present[strings.ToLower(c)] = struct{}{}
	}

	var cols []string
	var positions []int
	for i, c := range domain.CanonicalColumns {
		if _, ok := present[strings.ToLower(c)]; !ok {
			s.logger.Warn("template lacks canonical column", "column", c, "template", s.template)
			continue
		}
		cols = append(cols, c)
		positions = append(positions, i)
	}
	return cols, positions
}

func insertSQL(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	return "INSERT INTO " + quoteIdent(ExportTable) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders + ")"
}

func sameFile(template os.FileInfo, templatePath, dest string) bool {
	if info, err := os.Stat(dest); err == nil {
		return os.SameFile(template, info)
	}
	a, errA := filepath.Abs(templatePath)
	b, errB := filepath.Abs(dest)
	return errA == nil && errB == nil && a == b
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

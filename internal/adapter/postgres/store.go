// Package postgres reads and extends the station registry in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
}

// Options names the registry tables and the station category being coded.
type Options struct {
	Table       string // registry of existing stations, default "estacao"
	IntakeTable string // coded stations written back by SaveStations, default "estacao_nova"
	Category    int    // tipo_estacao filter, default 2 (rainfall)
}

// Store implements the code lookups against the registry. Only active
// stations count: not imported, not removed, not temporary, not a repeated
// import. Stations saved by SaveStations always count.
type Store struct {
	db          DB
	table       string
	intake      string
	intakeIndex string
	category    int
	logger      *slog.Logger
}

// Connect opens a pool and verifies the server answers.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrConnection, err)
	}
	return pool, nil
}

// New creates a Store over db.
func New(db DB, opts Options, logger *slog.Logger) *Store {
	if opts.Table == "" {
		opts.Table = "estacao"
	}
	if opts.IntakeTable == "" {
		opts.IntakeTable = "estacao_nova"
	}
	if opts.Category == 0 {
		opts.Category = 2
	}
	return &Store{
		db:          db,
		table:       quoteTable(opts.Table),
		intake:      quoteTable(opts.IntakeTable),
		intakeIndex: pgx.Identifier{strings.ReplaceAll(opts.IntakeTable, ".", "_") + "_tipo_codigo_idx"}.Sanitize(),
		category:    opts.Category,
		logger:      logger,
	}
}

// quoteTable sanitizes a possibly schema-qualified table name.
func quoteTable(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// EnsureSchema creates the table SaveStations writes to when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := strings.NewReplacer("{{intake}}", s.intake, "{{intake_index}}", s.intakeIndex).Replace(schemaSQL)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return classify("create intake table", err)
	}
	return nil
}

// Ping reports whether the registry is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// activeCodes is the union of every code the category already holds.
func (s *Store) activeCodes() string {
	return fmt.Sprintf(`
SELECT codigo FROM %s
WHERE tipo_estacao = $1
  AND importado = 0 AND removido = 0 AND temporario = 0 AND importado_repetido = 0
  AND codigo IS NOT NULL
UNION
SELECT codigo FROM %s
WHERE tipo_estacao = $1`, s.table, s.intake)
}

// ActiveCodesWithPrefix lists the codes of the quadrant prefix, ordered. Codes
// of a longer prefix that happens to start with prefix are excluded.
func (s *Store) ActiveCodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	sql := `SELECT codigo FROM (` + s.activeCodes() + `) c WHERE codigo LIKE $2 AND length(codigo) = $3 ORDER BY codigo`

	rows, err := s.db.Query(ctx, sql, s.category, escapeLike(prefix)+"%", len(prefix)+domain.SequenceLen)
	if err != nil {
		return nil, classify("list codes with prefix", err)
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, classify("scan code", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list codes with prefix", err)
	}
	return codes, nil
}

// ActiveCodesInRange lists the numeric codes in [lo, hi). Non-numeric codes
// are skipped.
func (s *Store) ActiveCodesInRange(ctx context.Context, lo, hi int64) ([]int64, error) {
	sql := `
SELECT n FROM (
    SELECT CASE WHEN codigo ~ '^[0-9]{1,18}$' THEN CAST(codigo AS BIGINT) END AS n
    FROM (` + s.activeCodes() + `) c
) numeric_codes
WHERE n >= $2 AND n < $3
ORDER BY n`

	rows, err := s.db.Query(ctx, sql, s.category, lo, hi)
	if err != nil {
		return nil, classify("list codes in range", err)
	}
	defer rows.Close()

	var codes []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, classify("scan code", err)
		}
		codes = append(codes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list codes in range", err)
	}
	return codes, nil
}

// MaxRegistryID returns the highest registry id across both tables, 0 when empty.
func (s *Store) MaxRegistryID(ctx context.Context) (int64, error) {
	sql := fmt.Sprintf(`
SELECT GREATEST(
    (SELECT COALESCE(MAX(registro_id), 0) FROM %s),
    (SELECT COALESCE(MAX(registro_id), 0) FROM %s)
)`, s.table, s.intake)

	var id int64
	if err := s.db.QueryRow(ctx, sql).Scan(&id); err != nil {
		return 0, classify("max registry id", err)
	}
	return id, nil
}

// SaveStations inserts coded stations into the intake table in one batch. The
// batch runs as a single implicit transaction, so either every station is
// saved or none is.
func (s *Store) SaveStations(ctx context.Context, records []domain.StationRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (
    registro_id, tipo_estacao, codigo, nome, codigo_adicional,
    latitude, longitude, altitude, area_drenagem,
    bacia_codigo, sub_bacia_codigo, rio_codigo, estado_codigo, municipio_codigo,
    responsavel_codigo, operadora_codigo, codificada_em
) VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`, s.intake)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query,
			r.RegistryID, r.Category, r.Code, r.Name, r.SecondCode,
			r.Latitude, r.Longitude, r.Altitude, r.DrainageArea,
			r.Codes.Basin, r.Codes.SubBasin, r.Codes.River, r.Codes.State, r.Codes.Municipality,
			r.Codes.Responsible, r.Codes.Operator, r.CodedAt,
		)
	}

	res := s.db.SendBatch(ctx, batch)
	defer res.Close()

	for _, r := range records {
		if _, err := res.Exec(); err != nil {
			return 0, classify(fmt.Sprintf("save station %q", r.Name), err)
		}
	}

	s.logger.Info("stations saved", "table", s.intake, "count", len(records))
	return len(records), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// classify wraps err, marking connectivity failures with domain.ErrConnection.
func classify(op string, err error) error {
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %s: %w", domain.ErrConnection, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

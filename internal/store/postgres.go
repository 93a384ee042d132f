package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/db"
	"github.com/sells-group/crime-etl/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id            TEXT PRIMARY KEY,
	input         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	stage         TEXT,
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ,
	rows_loaded   INTEGER NOT NULL DEFAULT 0,
	rows_deduped  INTEGER NOT NULL DEFAULT 0,
	rows_cleaned  INTEGER NOT NULL DEFAULT 0,
	rows_enriched INTEGER NOT NULL DEFAULT 0,
	null_dates    INTEGER NOT NULL DEFAULT 0,
	locations     INTEGER NOT NULL DEFAULT 0,
	crime_types   INTEGER NOT NULL DEFAULT 0,
	monthly_rows  INTEGER NOT NULL DEFAULT 0,
	error         TEXT
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_status ON etl_runs(status);
CREATE INDEX IF NOT EXISTS idx_etl_runs_started_at ON etl_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ReplaceTables loads each table into a staging copy with COPY and swaps all three into
// place in a single transaction.
func (s *PostgresStore) ReplaceTables(ctx context.Context, tables *model.Tables) error {
	flat := flatten(tables)
	loads := make([]db.TableLoad, len(flat))
	for i, tr := range flat {
		loads[i] = db.TableLoad{
			Table:   tr.def.name,
			Schema:  tr.def.postgresSchema(),
			Columns: tr.def.columnNames(),
			Rows:    tr.rows,
		}
	}

	counts, err := db.ReplaceTables(ctx, s.pool, loads)
	if err != nil {
		return eris.Wrap(err, "postgres: replace tables")
	}
	zap.L().Debug("postgres: tables replaced",
		zap.Int64("incidents", counts[TableIncidents]),
		zap.Int64("locations", counts[TableLocations]),
		zap.Int64("crime_types", counts[TableCrimeTypes]),
	)
	return nil
}

func (s *PostgresStore) LoadIncidents(ctx context.Context) ([]model.IncidentFact, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT %s FROM %s",
		db.QuoteAndJoin(incidentsDef.columnNames()), TableIncidents))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query incidents")
	}
	defer rows.Close()

	var out []model.IncidentFact
	for rows.Next() {
		var f model.IncidentFact
		var season *string
		if err := rows.Scan(
			&f.ID, &f.CaseNumber, &f.Date, &f.Block, &f.PrimaryType, &f.Description,
			&f.Arrest, &f.Domestic, &f.Beat, &f.District, &f.Ward, &f.CommunityArea,
			&f.LocationID, &f.CrimeTypeID,
			&f.Year, &f.Month, &f.Day, &f.Hour, &f.Weekday, &f.IsWeekend, &season,
			&f.SeverityScore, &f.Rolling7DAvg,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan incident")
		}
		if season != nil {
			f.Season = *season
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate incidents")
}

func (s *PostgresStore) StartRun(ctx context.Context, input string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO etl_runs (id, input, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, input, string(model.RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert run")
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, id string, stats model.RunStats) error {
	return s.finishRun(ctx, id, model.RunStatusComplete, nil, stats, nil)
}

func (s *PostgresStore) FailRun(ctx context.Context, id string, stage string, stats model.RunStats, runErr error) error {
	var msg *string
	if runErr != nil {
		m := runErr.Error()
		msg = &m
	}
	return s.finishRun(ctx, id, model.RunStatusFailed, &stage, stats, msg)
}

func (s *PostgresStore) finishRun(ctx context.Context, id string, status model.RunStatus, stage *string, st model.RunStats, errMsg *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE etl_runs SET status = $1, stage = $2, completed_at = now(),
		 rows_loaded = $3, rows_deduped = $4, rows_cleaned = $5, rows_enriched = $6,
		 null_dates = $7, locations = $8, crime_types = $9, monthly_rows = $10, error = $11
		 WHERE id = $12`,
		string(status), stage,
		st.RowsLoaded, st.RowsDeduped, st.RowsCleaned, st.RowsEnriched,
		st.NullDates, st.Locations, st.CrimeTypes, st.MonthlyRows, errMsg,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, status, stage, started_at, completed_at,
		rows_loaded, rows_deduped, rows_cleaned, rows_enriched,
		null_dates, locations, crime_types, monthly_rows, error
		FROM etl_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, runLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var stage, msg *string
		if err := rows.Scan(
			&r.ID, &r.Input, &r.Status, &stage, &r.StartedAt, &r.CompletedAt,
			&r.Stats.RowsLoaded, &r.Stats.RowsDeduped, &r.Stats.RowsCleaned, &r.Stats.RowsEnriched,
			&r.Stats.NullDates, &r.Stats.Locations, &r.Stats.CrimeTypes, &r.Stats.MonthlyRows, &msg,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if stage != nil {
			r.Stage = *stage
		}
		if msg != nil {
			r.Error = strings.TrimSpace(*msg)
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// runLimit applies the default page size of 100.
func runLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}

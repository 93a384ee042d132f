package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crime-etl/internal/model"
)

// sqliteDateLayout is how incident timestamps are stored in TEXT columns.
const sqliteDateLayout = "2006-01-02 15:04:05"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id            TEXT PRIMARY KEY,
	input         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	stage         TEXT,
	started_at    DATETIME NOT NULL,
	completed_at  DATETIME,
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
CREATE INDEX IF NOT EXISTS idx_etl_runs_started_at ON etl_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceTables drops and recreates the three tables inside one transaction.
// A failure rolls back every table to its previous contents.
func (s *SQLiteStore) ReplaceTables(ctx context.Context, tables *model.Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, tr := range flatten(tables) {
		if err := replaceSQLiteTable(ctx, tx, tr); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit replace")
	}
	return nil
}

func replaceSQLiteTable(ctx context.Context, tx *sql.Tx, tr tableRows) error {
	name := tr.def.name
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
		return eris.Wrapf(err, "sqlite: drop %s", name)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %q (%s)", name, tr.def.sqliteSchema())); err != nil {
		return eris.Wrapf(err, "sqlite: create %s", name)
	}

	cols := tr.def.columnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), placeholders))
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", name)
	}
	defer stmt.Close() //nolint:errcheck

	for i, row := range tr.rows {
		if _, err := stmt.ExecContext(ctx, sqliteArgs(row)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s row %d", name, i)
		}
	}
	return nil
}

// sqliteArgs converts times to TEXT and booleans to 0/1.
func sqliteArgs(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case time.Time:
			out[i] = x.Format(sqliteDateLayout)
		case bool:
			if x {
				out[i] = 1
			} else {
				out[i] = 0
			}
		default:
			out[i] = v
		}
	}
	return out
}

func (s *SQLiteStore) LoadIncidents(ctx context.Context) ([]model.IncidentFact, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %q ORDER BY rowid",
		strings.Join(incidentsDef.columnNames(), ", "), TableIncidents))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query incidents")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.IncidentFact
	for rows.Next() {
		var (
			f                                   model.IncidentFact
			date, season                        sql.NullString
			arrest, domestic                    sql.NullBool
			beat, district, ward, area          sql.NullInt64
			year, month, day, hour, wd, weekend sql.NullInt64
			rolling                             sql.NullFloat64
		)
		if err := rows.Scan(
			&f.ID, &f.CaseNumber, &date, &f.Block, &f.PrimaryType, &f.Description,
			&arrest, &domestic, &beat, &district, &ward, &area,
			&f.LocationID, &f.CrimeTypeID,
			&year, &month, &day, &hour, &wd, &weekend, &season,
			&f.SeverityScore, &rolling,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incident")
		}
		if date.Valid {
			if t, err := time.Parse(sqliteDateLayout, date.String); err == nil {
				f.Date = &t
			}
		}
		f.Arrest = nullBool(arrest)
		f.Domestic = nullBool(domestic)
		f.Beat, f.District, f.Ward, f.CommunityArea = nullInt(beat), nullInt(district), nullInt(ward), nullInt(area)
		f.Year, f.Month, f.Day, f.Hour = nullInt(year), nullInt(month), nullInt(day), nullInt(hour)
		f.Weekday, f.IsWeekend = nullInt(wd), nullInt(weekend)
		f.Season = season.String
		if rolling.Valid {
			f.Rolling7DAvg = model.FloatPtr(rolling.Float64)
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate incidents")
}

func (s *SQLiteStore) StartRun(ctx context.Context, input string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etl_runs (id, input, status, started_at) VALUES (?, ?, ?, ?)`,
		id, input, string(model.RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, stats model.RunStats) error {
	return s.finishRun(ctx, id, model.RunStatusComplete, "", stats, "")
}

func (s *SQLiteStore) FailRun(ctx context.Context, id string, stage string, stats model.RunStats, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.finishRun(ctx, id, model.RunStatusFailed, stage, stats, msg)
}

func (s *SQLiteStore) finishRun(ctx context.Context, id string, status model.RunStatus, stage string, st model.RunStats, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE etl_runs SET status = ?, stage = ?, completed_at = ?,
		 rows_loaded = ?, rows_deduped = ?, rows_cleaned = ?, rows_enriched = ?,
		 null_dates = ?, locations = ?, crime_types = ?, monthly_rows = ?, error = ?
		 WHERE id = ?`,
		string(status), stage, time.Now().UTC(),
		st.RowsLoaded, st.RowsDeduped, st.RowsCleaned, st.RowsEnriched,
		st.NullDates, st.Locations, st.CrimeTypes, st.MonthlyRows, errMsg,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", id)
	}
	return checkRowsAffected(res, "run", id)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, status, stage, started_at, completed_at,
		rows_loaded, rows_deduped, rows_cleaned, rows_enriched,
		null_dates, locations, crime_types, monthly_rows, error
		FROM etl_runs`
	var args []any
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, runLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r           model.Run
		stage, msg  sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.Input, &r.Status, &stage, &r.StartedAt, &completedAt,
		&r.Stats.RowsLoaded, &r.Stats.RowsDeduped, &r.Stats.RowsCleaned, &r.Stats.RowsEnriched,
		&r.Stats.NullDates, &r.Stats.Locations, &r.Stats.CrimeTypes, &r.Stats.MonthlyRows, &msg,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Stage = stage.String
	r.Error = msg.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return model.IntPtr(int(v.Int64))
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return model.BoolPtr(v.Bool)
}

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// TableLoad describes one table to be fully replaced.
type TableLoad struct {
	Table   string   // live table name, e.g. "incidents"
	Schema  string   // column definitions, e.g. "id TEXT, year INTEGER"
	Columns []string // COPY column order; must match Schema
	Rows    [][]any
}

// StagingName returns the staging table used while replacing table.
func StagingName(table string) string {
	return table + "_staging"
}

// ReplaceTables swaps every table in loads for freshly loaded contents in a single transaction:
//  1. CREATE each <table>_staging and COPY its rows
//  2. DROP each live table and RENAME staging into place
//  3. COMMIT
//
// Any failure rolls back the whole transaction, leaving the previous tables untouched.
// Returns rows copied per table.
func ReplaceTables(ctx context.Context, pool Pool, loads []TableLoad) (map[string]int64, error) {
	for _, l := range loads {
		if l.Table == "" || l.Schema == "" {
			return nil, eris.New("db: replace: table name and schema are required")
		}
		if len(l.Columns) == 0 {
			return nil, eris.Errorf("db: replace %s: no columns specified", l.Table)
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	counts := make(map[string]int64, len(loads))
	for _, l := range loads {
		staging := StagingName(l.Table)
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+sanitizeTable(staging)); err != nil {
			return nil, eris.Wrapf(err, "db: replace: drop stale %s", staging)
		}
		createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", sanitizeTable(staging), l.Schema)
		if _, err := tx.Exec(ctx, createSQL); err != nil {
			return nil, eris.Wrapf(err, "db: replace: create %s", staging)
		}
		n, err := CopyFrom(ctx, tx, staging, l.Columns, l.Rows)
		if err != nil {
			return nil, eris.Wrapf(err, "db: replace: load %s", l.Table)
		}
		counts[l.Table] = n
	}

	for _, l := range loads {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+sanitizeTable(l.Table)); err != nil {
			return nil, eris.Wrapf(err, "db: replace: drop %s", l.Table)
		}
		renameSQL := fmt.Sprintf("ALTER TABLE %s RENAME TO %s",
			sanitizeTable(StagingName(l.Table)), pgx.Identifier{l.Table}.Sanitize())
		if _, err := tx.Exec(ctx, renameSQL); err != nil {
			return nil, eris.Wrapf(err, "db: replace: rename %s", l.Table)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "db: replace: commit tx")
	}
	return counts, nil
}

// sanitizeTable handles schema-qualified table names like "public.incidents".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

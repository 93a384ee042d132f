package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoads() []TableLoad {
	return []TableLoad{
		{
			Table:   "crime_types",
			Schema:  "crime_type_id INTEGER PRIMARY KEY, primary_type TEXT, description TEXT",
			Columns: []string{"crime_type_id", "primary_type", "description"},
			Rows:    [][]any{{1, "THEFT", "$500 AND UNDER"}},
		},
		{
			Table:   "locations",
			Schema:  "location_id INTEGER PRIMARY KEY, block TEXT",
			Columns: []string{"location_id", "block"},
			Rows:    [][]any{{1, "001XX N STATE ST"}, {2, "002XX W MADISON ST"}},
		},
	}
}

func TestReplaceTables_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "crime_types_staging"`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`CREATE TABLE "crime_types_staging"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"crime_types_staging"}, []string{"crime_type_id", "primary_type", "description"}).WillReturnResult(1)
	mock.ExpectExec(`DROP TABLE IF EXISTS "locations_staging"`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`CREATE TABLE "locations_staging"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"locations_staging"}, []string{"location_id", "block"}).WillReturnResult(2)
	mock.ExpectExec(`DROP TABLE IF EXISTS "crime_types"`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`ALTER TABLE "crime_types_staging" RENAME TO "crime_types"`).WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectExec(`DROP TABLE IF EXISTS "locations"`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`ALTER TABLE "locations_staging" RENAME TO "locations"`).WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectCommit()

	counts, err := ReplaceTables(context.Background(), mock, testLoads())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["crime_types"])
	assert.Equal(t, int64(2), counts["locations"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTables_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "crime_types_staging"`).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`CREATE TABLE "crime_types_staging"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"crime_types_staging"}, []string{"crime_type_id", "primary_type", "description"}).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = ReplaceTables(context.Background(), mock, testLoads())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace: load crime_types")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTables_BeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err = ReplaceTables(context.Background(), mock, testLoads())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestReplaceTables_Validation(t *testing.T) {
	_, err := ReplaceTables(context.Background(), nil, []TableLoad{{Table: "x", Schema: "a TEXT"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, err = ReplaceTables(context.Background(), nil, []TableLoad{{Columns: []string{"a"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table name and schema are required")
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"incidents"`, sanitizeTable("incidents"))
	assert.Equal(t, `"public"."incidents"`, sanitizeTable("public.incidents"))
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "block", "year"`, QuoteAndJoin([]string{"id", "block", "year"}))
}

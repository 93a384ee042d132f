package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-etl/internal/model"
)

func TestReshape(t *testing.T) {
	enriched := Enrich(table(
		inc("1", "2016-01-05 00:00", "X", "THEFT", 1),
		inc("2", "2016-01-06 00:00", "X", "THEFT", 1),
		inc("3", "2016-01-07 00:00", "X", "BATTERY", 1),
		inc("4", "2016-02-01 00:00", "X", "THEFT", 1),
		inc("5", "2015-12-31 00:00", "X", "ARSON", 1),
		inc("6", "", "X", "THEFT", 1),
		inc("7", "2016-02-01 00:00", "X", "  ", 1),
	), EnrichOptions{})

	out := Reshape(enriched)

	assert.Equal(t, []model.MonthlyCount{
		{Year: 2015, Month: 12, PrimaryType: "ARSON", CrimeCount: 1},
		{Year: 2016, Month: 1, PrimaryType: "BATTERY", CrimeCount: 1},
		{Year: 2016, Month: 1, PrimaryType: "THEFT", CrimeCount: 2},
		{Year: 2016, Month: 2, PrimaryType: "THEFT", CrimeCount: 1},
	}, out.Counts)

	assert.Equal(t, []string{"ARSON", "BATTERY", "THEFT"}, out.Pivot.Types)
	require.Len(t, out.Pivot.Rows, 3)
	assert.Equal(t, model.MonthlyPivotRow{Year: 2015, Month: 12, Counts: []int{1, 0, 0}}, out.Pivot.Rows[0])
	assert.Equal(t, model.MonthlyPivotRow{Year: 2016, Month: 1, Counts: []int{0, 1, 2}}, out.Pivot.Rows[1])
	assert.Equal(t, model.MonthlyPivotRow{Year: 2016, Month: 2, Counts: []int{0, 0, 1}}, out.Pivot.Rows[2])
}

func TestPivotZeroFillsEveryCell(t *testing.T) {
	p := Pivot([]model.MonthlyCount{
		{Year: 2016, Month: 1, PrimaryType: "A", CrimeCount: 3},
		{Year: 2016, Month: 2, PrimaryType: "B", CrimeCount: 4},
		{Year: 2017, Month: 3, PrimaryType: "C", CrimeCount: 5},
	})

	require.Len(t, p.Rows, 3)
	var total, zeros int
	for _, r := range p.Rows {
		require.Len(t, r.Counts, len(p.Types))
		for _, c := range r.Counts {
			total += c
			if c == 0 {
				zeros++
			}
		}
	}
	assert.Equal(t, 12, total)
	assert.Equal(t, 6, zeros)
}

func TestReshapeEmpty(t *testing.T) {
	out := Reshape(&model.EnrichedTable{})
	assert.Empty(t, out.Counts)
	assert.Empty(t, out.Pivot.Rows)
	assert.Empty(t, out.Pivot.Types)
}

package etl

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/model"
)

type monthKey struct {
	year  int
	month int
}

// Reshape groups the enriched table by (year, month, primary type) and pivots the counts
// into one row per (year, month) with a zero-filled column per primary type. Rows with a
// null timestamp or an empty primary type are not counted.
func Reshape(t *model.EnrichedTable) *model.Reshaped {
	type groupKey struct {
		monthKey
		primaryType string
	}

	groups := make(map[groupKey]int)
	if t != nil {
		for i := range t.Rows {
			row := &t.Rows[i]
			if row.Year == nil || row.Month == nil || strings.TrimSpace(row.PrimaryType) == "" {
				continue
			}
			groups[groupKey{monthKey{*row.Year, *row.Month}, row.PrimaryType}]++
		}
	}

	counts := make([]model.MonthlyCount, 0, len(groups))
	for k, n := range groups {
		counts = append(counts, model.MonthlyCount{
			Year:        k.year,
			Month:       k.month,
			PrimaryType: k.primaryType,
			CrimeCount:  n,
		})
	}
	sort.Slice(counts, func(i, j int) bool {
		a, b := counts[i], counts[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.PrimaryType < b.PrimaryType
	})

	out := &model.Reshaped{Counts: counts, Pivot: Pivot(counts)}

	zap.L().Info("reshape: monthly counts built",
		zap.String("stage", string(StageReshape)),
		zap.Int("long_rows", len(out.Counts)),
		zap.Int("pivot_rows", len(out.Pivot.Rows)),
		zap.Int("pivot_columns", len(out.Pivot.Types)),
	)
	return out
}

// Pivot turns long-form monthly counts into the wide form. Types are sorted, rows are
// sorted by (year, month), and missing cells are zero.
func Pivot(counts []model.MonthlyCount) model.MonthlyPivot {
	typeSet := make(map[string]struct{})
	months := make(map[monthKey]struct{})
	for _, c := range counts {
		typeSet[c.PrimaryType] = struct{}{}
		months[monthKey{c.Year, c.Month}] = struct{}{}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	col := make(map[string]int, len(types))
	for i, t := range types {
		col[t] = i
	}

	keys := make([]monthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})
	rowIdx := make(map[monthKey]int, len(keys))
	rows := make([]model.MonthlyPivotRow, len(keys))
	for i, k := range keys {
		rowIdx[k] = i
		rows[i] = model.MonthlyPivotRow{Year: k.year, Month: k.month, Counts: make([]int, len(types))}
	}

	for _, c := range counts {
		rows[rowIdx[monthKey{c.Year, c.Month}]].Counts[col[c.PrimaryType]] += c.CrimeCount
	}
	return model.MonthlyPivot{Types: types, Rows: rows}
}

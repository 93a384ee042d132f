package etl

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/model"
	"github.com/sells-group/crime-etl/internal/transform"
)

// EnrichOptions configures the rolling average.
type EnrichOptions struct {
	Window int         // default 7
	Mode   RollingMode // default observed
}

// Enrich appends calendar, severity, rolling, spatial density, and repeat-probability
// features to every row. Rows are returned in chronological order with null timestamps
// last; none are added or removed. Bad values degrade to nulls or defaults.
func Enrich(t *model.Table, opts EnrichOptions) *model.EnrichedTable {
	if opts.Window < 1 {
		opts.Window = DefaultRollingWindow
	}
	if opts.Mode == "" {
		opts.Mode = RollingObserved
	}
	if t == nil {
		return &model.EnrichedTable{}
	}

	out := &model.EnrichedTable{
		ExtraColumns: t.ExtraColumns,
		Rows:         make([]model.EnrichedIncident, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = enrichRow(row)
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i].Date, out.Rows[j].Date
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})

	applyRolling(out.Rows, opts)
	applySpatialDensity(out.Rows)
	applyRepeatProbability(out.Rows)

	zap.L().Info("enrich: features derived",
		zap.String("stage", string(StageEnrich)),
		zap.Int("rows_in", t.Len()),
		zap.Int("rows_out", out.Len()),
		zap.Int("window", opts.Window),
		zap.String("rolling_mode", string(opts.Mode)),
	)
	return out
}

// enrichRow derives the per-row calendar and severity features.
func enrichRow(row model.Incident) model.EnrichedIncident {
	e := model.EnrichedIncident{
		Incident:      row,
		SeverityScore: transform.Severity(row.PrimaryType),
	}
	if row.Date == nil {
		return e
	}

	d := *row.Date
	wd := transform.Weekday(d)
	e.Year = model.IntPtr(d.Year())
	e.Month = model.IntPtr(int(d.Month()))
	e.Day = model.IntPtr(d.Day())
	e.Hour = model.IntPtr(d.Hour())
	e.Weekday = model.IntPtr(wd)
	e.IsWeekend = model.IntPtr(transform.IsWeekend(wd))
	e.Season = transform.Season(int(d.Month()))
	return e
}

func applyRolling(rows []model.EnrichedIncident, opts EnrichOptions) {
	dates := make([]*time.Time, len(rows))
	for i := range rows {
		dates[i] = rows[i].Date
	}
	avg := RollingAverage(DailyCounts(dates), opts.Window, opts.Mode)

	for i := range rows {
		if rows[i].Date == nil {
			continue
		}
		if v, ok := avg[dateKey(*rows[i].Date)]; ok {
			rows[i].Rolling7DAvg = model.FloatPtr(v)
		}
	}
}

// applySpatialDensity sets count(area) / mean(area id) on each row with a community area.
func applySpatialDensity(rows []model.EnrichedIncident) {
	counts := make(map[int]int)
	var sum float64
	var n int
	for i := range rows {
		if ca := rows[i].CommunityArea; ca != nil {
			counts[*ca]++
			sum += float64(*ca)
			n++
		}
	}
	if n == 0 || sum == 0 {
		return
	}
	mean := sum / float64(n)

	for i := range rows {
		if ca := rows[i].CommunityArea; ca != nil {
			rows[i].SpatialDensity = model.FloatPtr(float64(counts[*ca]) / mean)
		}
	}
}

// applyRepeatProbability sets count(block) / total rows on each row with a block.
func applyRepeatProbability(rows []model.EnrichedIncident) {
	if len(rows) == 0 {
		return
	}
	counts := make(map[string]int)
	for i := range rows {
		if b := blockKey(rows[i].Block); b != "" {
			counts[b]++
		}
	}
	total := float64(len(rows))
	for i := range rows {
		if b := blockKey(rows[i].Block); b != "" {
			rows[i].RepeatIncidentProb = model.FloatPtr(float64(counts[b]) / total)
		}
	}
}

// blockKey treats whitespace-only blocks as null.
func blockKey(block string) string {
	if strings.TrimSpace(block) == "" {
		return ""
	}
	return block
}

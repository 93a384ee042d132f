package etl

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/model"
	"github.com/sells-group/crime-etl/internal/transform"
)

// CleanStats records the row-count delta of each cleaning step.
type CleanStats struct {
	RowsIn        int
	Duplicates    int
	MissingCoords int
	NullDates     int
	RowsOut       int
}

// Clean normalizes the primary type and location description labels, removes exact
// duplicates, and drops rows without coordinates. Labels are normalized before the
// duplicate check so no two output rows are identical. Unparseable timestamps were
// already degraded to nil by the loader and are kept. The input table is not modified.
func Clean(t *model.Table) (*model.Table, CleanStats) {
	stats := CleanStats{RowsIn: t.Len()}
	if t == nil {
		return &model.Table{}, stats
	}
	out := &model.Table{ExtraColumns: t.ExtraColumns}

	seen := make(map[string]struct{}, len(t.Rows))
	deduped := make([]model.Incident, 0, len(t.Rows))
	for _, row := range t.Rows {
		row.PrimaryType = transform.NormalizeLabel(row.PrimaryType)
		row.LocationDescription = transform.NormalizeLabel(row.LocationDescription)
		key := rowKey(&row)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, row)
	}

	out.Rows = make([]model.Incident, 0, len(deduped))
	for _, row := range deduped {
		if row.Latitude == nil || row.Longitude == nil {
			stats.MissingCoords++
			continue
		}
		if row.Date == nil {
			stats.NullDates++
		}
		out.Rows = append(out.Rows, row)
	}
	stats.RowsOut = len(out.Rows)

	zap.L().Info("clean: rows cleaned",
		zap.String("stage", string(StageClean)),
		zap.Int("rows_in", stats.RowsIn),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("missing_coords", stats.MissingCoords),
		zap.Int("null_dates", stats.NullDates),
		zap.Int("rows_out", stats.RowsOut),
		zap.Int("dropped", stats.RowsIn-stats.RowsOut),
	)
	return out, stats
}

const (
	keySep  = "\x1f"
	keyNull = "\x00"
)

// rowKey encodes every column of an incident so that two rows share a key iff they are
// identical. Nulls compare equal to each other and unequal to any value.
func rowKey(r *model.Incident) string {
	var b strings.Builder
	field := func(s string) {
		b.WriteString(s)
		b.WriteString(keySep)
	}

	field(r.ID)
	field(r.CaseNumber)
	if r.Date == nil {
		field(keyNull)
	} else {
		field(r.Date.UTC().Format(time.RFC3339Nano))
	}
	field(r.Block)
	field(r.PrimaryType)
	field(r.Description)
	field(r.LocationDescription)
	for _, v := range []*bool{r.Arrest, r.Domestic} {
		if v == nil {
			field(keyNull)
		} else {
			field(strconv.FormatBool(*v))
		}
	}
	for _, v := range []*int{r.Beat, r.District, r.Ward, r.CommunityArea} {
		if v == nil {
			field(keyNull)
		} else {
			field(strconv.Itoa(*v))
		}
	}
	for _, v := range []*float64{r.Latitude, r.Longitude} {
		if v == nil {
			field(keyNull)
		} else {
			field(strconv.FormatFloat(*v, 'g', -1, 64))
		}
	}
	for _, e := range r.Extra {
		field(e)
	}
	return b.String()
}

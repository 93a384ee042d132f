package etl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-etl/internal/model"
)

const testHeader = "ID,Case Number,Date,Block,IUCR,Primary Type,Description,Location Description,Arrest,Domestic,Beat,District,Ward,Community Area,Latitude,Longitude"

// writeCSV writes the header plus lines to a temp file and returns its path.
func writeCSV(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := testHeader + "\n" + strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

// inc builds a cleaned incident with coordinates set.
func inc(id, date, block, primaryType string, area int) model.Incident {
	r := model.Incident{
		ID:                  id,
		CaseNumber:          "HZ" + id,
		Block:               block,
		PrimaryType:         primaryType,
		Description:         "SIMPLE",
		LocationDescription: "STREET",
		Arrest:              model.BoolPtr(false),
		Domestic:            model.BoolPtr(false),
		CommunityArea:       model.IntPtr(area),
		Latitude:            model.FloatPtr(41.88),
		Longitude:           model.FloatPtr(-87.63),
	}
	if date != "" {
		r.Date = ts(date)
	}
	return r
}

func table(rows ...model.Incident) *model.Table {
	return &model.Table{Rows: rows}
}

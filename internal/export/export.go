// Package export writes the normalized tables and monthly counts to flat files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/etl"
	"github.com/sells-group/crime-etl/internal/model"
)

// Output file names.
const (
	FileIncidents    = "incidents.csv"
	FileLocations    = "locations.csv"
	FileCrimeTypes   = "crime_types.csv"
	FileMonthlyLong  = "crime_counts_unpivot.csv"
	FileMonthlyPivot = "crime_monthly_pivot.csv"
	FileGeoJSON      = "locations.geojson"
	FileManifest     = "manifest.yaml"
)

// dateLayout is the exported timestamp format.
const dateLayout = "2006-01-02 15:04:05"

// Writer exports a run's outputs into one directory.
type Writer struct {
	dir     string
	geoJSON bool
	now     func() time.Time
}

// NewWriter creates a Writer for dir. When geoJSON is set, locations are also written as GeoJSON.
func NewWriter(dir string, geoJSON bool) *Writer {
	return &Writer{dir: dir, geoJSON: geoJSON, now: time.Now}
}

// fileWriter renders one output file and reports its row count.
type fileWriter struct {
	name  string
	write func(w io.Writer) (int, error)
}

// Export writes every output to a temp file in the output directory, then renames them all
// into place. If any file fails to render, no output file is replaced.
func (w *Writer) Export(ctx context.Context, tables *model.Tables, reshaped *model.Reshaped, stats model.RunStats) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return &etl.StorageError{Target: w.dir, Err: eris.Wrap(err, "export: create output dir")}
	}

	files := []fileWriter{
		{FileIncidents, func(out io.Writer) (int, error) { return WriteIncidentsCSV(out, tables.Incidents) }},
		{FileLocations, func(out io.Writer) (int, error) { return writeLocations(out, tables.Locations) }},
		{FileCrimeTypes, func(out io.Writer) (int, error) { return writeCrimeTypes(out, tables.CrimeTypes) }},
		{FileMonthlyLong, func(out io.Writer) (int, error) { return writeMonthlyCounts(out, reshaped.Counts) }},
		{FileMonthlyPivot, func(out io.Writer) (int, error) { return writeMonthlyPivot(out, reshaped.Pivot) }},
	}
	if w.geoJSON {
		files = append(files, fileWriter{FileGeoJSON, func(out io.Writer) (int, error) { return writeGeoJSON(out, tables.Locations) }})
	}

	manifest := Manifest{GeneratedAt: w.now().UTC(), Stats: stats}
	staged := make(map[string]string, len(files)+1)
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			cleanup()
			return eris.Wrap(err, "export: cancelled")
		}
		tmp, rows, err := w.stage(f)
		if err != nil {
			cleanup()
			return &etl.StorageError{Target: filepath.Join(w.dir, f.name), Err: err}
		}
		staged[f.name] = tmp
		manifest.Files = append(manifest.Files, ManifestFile{Name: f.name, Rows: rows})
	}

	tmp, _, err := w.stage(fileWriter{FileManifest, func(out io.Writer) (int, error) { return 0, writeManifest(out, manifest) }})
	if err != nil {
		cleanup()
		return &etl.StorageError{Target: filepath.Join(w.dir, FileManifest), Err: err}
	}
	staged[FileManifest] = tmp

	// Every file rendered; swap them in. The manifest goes last so it only describes finished files.
	names := make([]string, 0, len(staged))
	for _, f := range files {
		names = append(names, f.name)
	}
	names = append(names, FileManifest)
	for _, name := range names {
		dst := filepath.Join(w.dir, name)
		if err := os.Rename(staged[name], dst); err != nil {
			cleanup()
			return &etl.StorageError{Target: dst, Err: eris.Wrap(err, "export: rename")}
		}
		delete(staged, name)
	}

	zap.L().Info("export: files written",
		zap.String("stage", string(etl.StageExport)),
		zap.String("dir", w.dir),
		zap.Int("files", len(names)),
	)
	return nil
}

// stage renders f into a temp file next to its destination and returns the temp path.
func (w *Writer) stage(f fileWriter) (string, int, error) {
	tmp, err := os.CreateTemp(w.dir, "."+f.name+".tmp-*")
	if err != nil {
		return "", 0, eris.Wrap(err, "export: create temp file")
	}

	rows, werr := f.write(tmp)
	cerr := tmp.Close()
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, eris.Wrapf(werr, "export: write %s", f.name)
	}
	if cerr != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, eris.Wrapf(cerr, "export: close %s", f.name)
	}
	return tmp.Name(), rows, nil
}

func writeCSV(out io.Writer, header []string, n int, row func(i int) []any) (int, error) {
	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	record := make([]string, len(header))
	for i := 0; i < n; i++ {
		for j, v := range row(i) {
			record[j] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return i, err
		}
	}
	cw.Flush()
	return n, cw.Error()
}

// WriteIncidentsCSV writes the incidents fact table as CSV with a header row.
func WriteIncidentsCSV(out io.Writer, rows []model.IncidentFact) (int, error) {
	return writeCSV(out, model.IncidentColumns, len(rows), func(i int) []any { return rows[i].Values() })
}

func writeLocations(out io.Writer, rows []model.Location) (int, error) {
	return writeCSV(out, model.LocationColumns, len(rows), func(i int) []any { return rows[i].Values() })
}

func writeCrimeTypes(out io.Writer, rows []model.CrimeType) (int, error) {
	return writeCSV(out, model.CrimeTypeColumns, len(rows), func(i int) []any { return rows[i].Values() })
}

func writeMonthlyCounts(out io.Writer, rows []model.MonthlyCount) (int, error) {
	return writeCSV(out, model.MonthlyCountColumns, len(rows), func(i int) []any { return rows[i].Values() })
}

func writeMonthlyPivot(out io.Writer, p model.MonthlyPivot) (int, error) {
	header := append([]string{"year", "month"}, p.Types...)
	return writeCSV(out, header, len(p.Rows), func(i int) []any {
		r := p.Rows[i]
		vals := make([]any, 0, len(header))
		vals = append(vals, r.Year, r.Month)
		for _, c := range r.Counts {
			vals = append(vals, c)
		}
		return vals
	})
}

// formatValue renders one cell. Nulls are empty.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(dateLayout)
	default:
		return fmt.Sprint(x)
	}
}

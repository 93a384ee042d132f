package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sells-group/crime-etl/internal/config"
	"github.com/sells-group/crime-etl/internal/etl"
	"github.com/sells-group/crime-etl/internal/export"
	"github.com/sells-group/crime-etl/internal/fetcher"
	"github.com/sells-group/crime-etl/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL pipeline over one input extract",
	Long:  "Loads the input (local path, http(s):// or ftp:// URL, .csv/.tsv/.zip/.xlsx), then cleans, enriches, normalizes, persists, and exports it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		res, err := runPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				RunID    string         `json:"run_id,omitempty"`
				Duration string         `json:"duration"`
				Stats    model.RunStats `json:"stats"`
			}{res.RunID, res.Duration.Round(time.Millisecond).String(), res.Stats})
		}
		formatRunResult(os.Stdout, res)
		return nil
	},
}

func init() {
	registerRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func registerRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("input", "", "input path or URL (default from config)")
	f.String("delimiter", "", "field delimiter; \\t or tab for TSV (default from config)")
	f.String("sheet", "", "worksheet name for .xlsx inputs (default: first sheet)")
	f.Bool("lazy-quotes", false, "accept bare quotes inside unquoted fields")
	f.String("output", "", "export directory (default from config)")
	f.Bool("no-export", false, "skip flat-file exports")
	f.Bool("no-geojson", false, "skip the locations GeoJSON export")
	f.String("store", "", "store driver: sqlite, postgres, none (default from config)")
	f.String("database-url", "", "store DSN (default from config)")
	f.Int("rolling-window", 0, "rolling average window in days (default from config)")
	f.String("rolling-mode", "", "rolling window mode: observed or calendar (default from config)")
	f.Bool("json", false, "print the run result as JSON")
}

// applyRunFlags overrides config values with the flags that were set explicitly.
func applyRunFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("input") {
		c.Input.Path, _ = f.GetString("input")
	}
	if f.Changed("delimiter") {
		c.Input.Delimiter, _ = f.GetString("delimiter")
	}
	if f.Changed("sheet") {
		c.Input.Sheet, _ = f.GetString("sheet")
	}
	if lazy, _ := f.GetBool("lazy-quotes"); lazy {
		c.Input.LazyQuotes = true
	}
	if f.Changed("output") {
		c.Output.Dir, _ = f.GetString("output")
	}
	if noExport, _ := f.GetBool("no-export"); noExport {
		c.Output.Enabled = false
	}
	if noGeo, _ := f.GetBool("no-geojson"); noGeo {
		c.Output.GeoJSON = false
	}
	if f.Changed("store") {
		c.Store.Driver, _ = f.GetString("store")
	}
	if f.Changed("database-url") {
		c.Store.DatabaseURL, _ = f.GetString("database-url")
	}
	if f.Changed("rolling-window") {
		c.Pipeline.RollingWindowDays, _ = f.GetInt("rolling-window")
	}
	if f.Changed("rolling-mode") {
		c.Pipeline.RollingMode, _ = f.GetString("rolling-mode")
	}
	return c.Validate()
}

// runPipeline wires the loader, store, and exporter from c and runs the pipeline once.
func runPipeline(ctx context.Context, c *config.Config) (*etl.Result, error) {
	mode, err := etl.ParseRollingMode(c.Pipeline.RollingMode)
	if err != nil {
		return nil, err
	}

	loader := etl.NewLoader(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  c.HTTP.UserAgent,
			Timeout:    time.Duration(c.HTTP.TimeoutSecs) * time.Second,
			MaxRetries: c.HTTP.MaxRetries,
			RateLimit:  rate.Limit(c.HTTP.RateLimit),
		}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(c.HTTP.TimeoutSecs) * time.Second,
		}),
	)

	var (
		tables etl.TableStore
		runs   etl.RunLog
	)
	if c.Store.Driver != "none" {
		st, err := initStore(ctx, c)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck
		tables, runs = st, st
	}

	var exp etl.Exporter
	if c.Output.Enabled {
		exp = export.NewWriter(c.Output.Dir, c.Output.GeoJSON)
	}

	p := etl.New(loader, tables, runs, exp)
	return p.Run(ctx, etl.Options{
		Source: etl.Source{
			Path:       c.Input.Path,
			Delimiter:  c.Input.Delimiter,
			Encoding:   c.Input.Encoding,
			Sheet:      c.Input.Sheet,
			TempDir:    c.Input.TempDir,
			LazyQuotes: c.Input.LazyQuotes,
		},
		Enrich: etl.EnrichOptions{
			Window: c.Pipeline.RollingWindowDays,
			Mode:   mode,
		},
	})
}

// formatRunResult writes the per-stage row counts of a run to w.
func formatRunResult(out io.Writer, res *etl.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	}
	_, _ = fmt.Fprintf(w, "Rows loaded:\t%d\n", res.Stats.RowsLoaded)
	_, _ = fmt.Fprintf(w, "After dedup:\t%d\n", res.Stats.RowsDeduped)
	_, _ = fmt.Fprintf(w, "After cleaning:\t%d\n", res.Stats.RowsCleaned)
	_, _ = fmt.Fprintf(w, "Enriched:\t%d\n", res.Stats.RowsEnriched)
	_, _ = fmt.Fprintf(w, "Null dates:\t%d\n", res.Stats.NullDates)
	_, _ = fmt.Fprintf(w, "Locations:\t%d\n", res.Stats.Locations)
	_, _ = fmt.Fprintf(w, "Crime types:\t%d\n", res.Stats.CrimeTypes)
	_, _ = fmt.Fprintf(w, "Monthly rows:\t%d\n", res.Stats.MonthlyRows)
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", res.Duration.Round(time.Millisecond))
	_ = w.Flush()
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crime-etl/internal/transform"
)

var severityCmd = &cobra.Command{
	Use:   "severity",
	Short: "Print the crime severity table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		table := transform.SeverityTable()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(table)
		}
		formatSeverityTable(os.Stdout, table)
		return nil
	},
}

func init() {
	severityCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(severityCmd)
}

func formatSeverityTable(out io.Writer, table []transform.SeverityEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PRIMARY TYPE\tSCORE")
	for _, e := range table {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", e.Label, e.Score)
	}
	_, _ = fmt.Fprintf(w, "(other)\t%d\n", transform.DefaultSeverity)
	_ = w.Flush()
}

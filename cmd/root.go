package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crime-etl",
	Short: "Crime incident ETL pipeline",
	Long:  "Loads raw crime incident extracts, cleans and enriches them, normalizes them into a star schema, persists the tables, and serves the dashboard data API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package store persists the normalized crime tables and the pipeline run log.
package store

import (
	"context"

	"github.com/sells-group/crime-etl/internal/model"
)

// Live table names. Every pipeline run replaces all three together.
const (
	TableIncidents  = "incidents"
	TableLocations  = "locations"
	TableCrimeTypes = "crime_types"
	TableRuns       = "etl_runs"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the ETL pipeline and the dashboard API.
type Store interface {
	// Tables
	ReplaceTables(ctx context.Context, tables *model.Tables) error
	LoadIncidents(ctx context.Context) ([]model.IncidentFact, error)

	// Runs
	StartRun(ctx context.Context, input string) (string, error)
	CompleteRun(ctx context.Context, id string, stats model.RunStats) error
	FailRun(ctx context.Context, id string, stage string, stats model.RunStats, runErr error) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

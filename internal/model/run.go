package model

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats holds the per-stage row counts of a pipeline run.
type RunStats struct {
	RowsLoaded   int `json:"rows_loaded" yaml:"rows_loaded"`
	RowsDeduped  int `json:"rows_deduped" yaml:"rows_deduped"`
	RowsCleaned  int `json:"rows_cleaned" yaml:"rows_cleaned"`
	RowsEnriched int `json:"rows_enriched" yaml:"rows_enriched"`
	NullDates    int `json:"null_dates" yaml:"null_dates"`
	Locations    int `json:"locations" yaml:"locations"`
	CrimeTypes   int `json:"crime_types" yaml:"crime_types"`
	MonthlyRows  int `json:"monthly_rows" yaml:"monthly_rows"`
}

// Run is one entry of the etl_runs log.
type Run struct {
	ID          string     `json:"id"`
	Input       string     `json:"input"`
	Status      RunStatus  `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Stats       RunStats   `json:"stats"`
	Error       string     `json:"error,omitempty"`
}

// Duration returns the elapsed run time, or zero while running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

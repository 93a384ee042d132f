// Package etl implements the crime-incident batch pipeline: load, clean, enrich,
// normalize, persist, and reshape.
package etl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/model"
)

// TableStore replaces the normalized tables in a relational store.
type TableStore interface {
	ReplaceTables(ctx context.Context, tables *model.Tables) error
}

// RunLog records pipeline runs.
type RunLog interface {
	StartRun(ctx context.Context, input string) (string, error)
	CompleteRun(ctx context.Context, id string, stats model.RunStats) error
	FailRun(ctx context.Context, id string, stage string, stats model.RunStats, runErr error) error
}

// Exporter writes the normalized tables and the reshaped counts to flat files.
type Exporter interface {
	Export(ctx context.Context, tables *model.Tables, reshaped *model.Reshaped, stats model.RunStats) error
}

// Options configures one pipeline run.
type Options struct {
	Source Source
	Enrich EnrichOptions
}

// Result is the output of a successful run.
type Result struct {
	RunID    string
	Enriched *model.EnrichedTable
	Tables   *model.Tables
	Reshaped *model.Reshaped
	Stats    model.RunStats
	Duration time.Duration
}

// Pipeline runs the stages in order. The store, run log, and exporter are optional.
type Pipeline struct {
	loader   *Loader
	store    TableStore
	runs     RunLog
	exporter Exporter
}

// New creates a Pipeline. Pass nil for any sink that is not configured.
func New(loader *Loader, st TableStore, runs RunLog, exp Exporter) *Pipeline {
	return &Pipeline{loader: loader, store: st, runs: runs, exporter: exp}
}

// Run executes Loader -> Cleaner -> Enricher -> Normalizer -> Persister, with the Reshaper
// feeding the flat-file exports. A failure aborts the run and reports its stage.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("input", opts.Source.Path))
	log.Info("pipeline: starting run")

	res := &Result{}

	if p.runs != nil {
		id, err := p.runs.StartRun(ctx, opts.Source.Path)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: start run")
		}
		res.RunID = id
		log = log.With(zap.String("run_id", id))
	}

	fail := func(stage Stage, err error) (*Result, error) {
		stageErr := &StageError{Stage: stage, Err: err}
		log.Error("pipeline: run failed", zap.String("stage", string(stage)), zap.Error(err))
		if p.runs != nil && res.RunID != "" {
			// The run context may already be cancelled; the failure still gets recorded.
			if ferr := p.runs.FailRun(context.WithoutCancel(ctx), res.RunID, string(stage), res.Stats, err); ferr != nil {
				log.Warn("pipeline: record failed run", zap.Error(ferr))
			}
		}
		return nil, stageErr
	}

	raw, err := p.loader.Load(ctx, opts.Source)
	if err != nil {
		return fail(StageLoad, err)
	}
	res.Stats.RowsLoaded = raw.Len()

	cleaned, cs := Clean(raw)
	res.Stats.RowsDeduped = cs.RowsIn - cs.Duplicates
	res.Stats.RowsCleaned = cs.RowsOut
	res.Stats.NullDates = cs.NullDates

	res.Enriched = Enrich(cleaned, opts.Enrich)
	res.Stats.RowsEnriched = res.Enriched.Len()

	res.Tables = Normalize(res.Enriched)
	res.Stats.Locations = len(res.Tables.Locations)
	res.Stats.CrimeTypes = len(res.Tables.CrimeTypes)

	res.Reshaped = Reshape(res.Enriched)
	res.Stats.MonthlyRows = len(res.Reshaped.Counts)

	if err := ctx.Err(); err != nil {
		return fail(StagePersist, eris.Wrap(err, "pipeline: cancelled before persist"))
	}

	if p.store != nil {
		if err := p.store.ReplaceTables(ctx, res.Tables); err != nil {
			return fail(StagePersist, asStorageError("store", err))
		}
		log.Info("pipeline: tables persisted",
			zap.String("stage", string(StagePersist)),
			zap.Int("incidents", len(res.Tables.Incidents)),
		)
	}

	if p.exporter != nil {
		if err := p.exporter.Export(ctx, res.Tables, res.Reshaped, res.Stats); err != nil {
			return fail(StageExport, asStorageError("export", err))
		}
	}

	if p.runs != nil && res.RunID != "" {
		if err := p.runs.CompleteRun(ctx, res.RunID, res.Stats); err != nil {
			log.Warn("pipeline: record completed run", zap.Error(err))
		}
	}

	res.Duration = time.Since(start)
	log.Info("pipeline: run complete",
		zap.Int("rows_loaded", res.Stats.RowsLoaded),
		zap.Int("rows_cleaned", res.Stats.RowsCleaned),
		zap.Int("locations", res.Stats.Locations),
		zap.Int("crime_types", res.Stats.CrimeTypes),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// asStorageError tags err as a StorageError unless it already is one.
func asStorageError(target string, err error) error {
	if IsStorage(err) {
		return err
	}
	return &StorageError{Target: target, Err: err}
}

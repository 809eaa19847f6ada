package etl

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
)

// ── Job ────────────────────────────────────────────────────
// Orchestrates: collection.Load → merge each dataset → collection.Save → report.

// DatasetSource binds a dataset definition to the export that provides it.
type DatasetSource struct {
	Dataset    domain.Dataset
	SourceType string
	SourceCfg  SourceConfig
}

// Job holds everything a merge run needs.
type Job struct {
	Collection   Collection
	Sources      []DatasetSource
	ReportFields []domain.ReportField
}

// Result is the outcome of running a job.
type Result struct {
	Merges      []MergeResult
	OutputBytes int64
	Report      *Report
	Duration    time.Duration
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs merge jobs using the registered sources.
type Engine struct {
	Logger *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Run executes a job end-to-end. Every failure aborts the run; nothing is
// written unless all datasets merged.
func (e *Engine) Run(ctx context.Context, job *Job) (*Result, error) {
	start := time.Now()
	log := e.logger()
	result := &Result{}

	// 1. Load the collection.
	store, err := job.Collection.Load(ctx)
	if err != nil {
		return result, errors.Wrap(err, "load schools")
	}
	log.Info("loaded schools", "count", store.Len())

	// 2. Merge every dataset in order.
	for _, src := range job.Sources {
		mr, err := e.mergeSource(ctx, store, src)
		if err != nil {
			return result, err
		}
		log.Info("merged dataset",
			"dataset", mr.Dataset,
			"rows", mr.RowsRead,
			"qualified", mr.RowsQualified,
			"matched", mr.SchoolsMatched,
		)
		result.Merges = append(result.Merges, mr)
	}

	// 3. Write back.
	size, err := job.Collection.Save(ctx, store)
	if err != nil {
		return result, errors.Wrap(err, "save schools")
	}
	result.OutputBytes = size

	// 4. Report.
	result.Report = BuildReport(store, job.ReportFields, result.Merges, size)
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) mergeSource(ctx context.Context, store *SchoolStore, src DatasetSource) (MergeResult, error) {
	rows, err := OpenSource(ctx, src.SourceType, src.SourceCfg)
	if err != nil {
		return MergeResult{Dataset: src.Dataset.Name}, errors.Wrapf(err, "open %s", src.Dataset.Name)
	}
	defer rows.Close()

	return Merge(ctx, store, rows, src.Dataset)
}

package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/andrewoneill45-ctrl/school-profile/internal/config"
	"github.com/andrewoneill45-ctrl/school-profile/internal/service"
	"github.com/andrewoneill45-ctrl/school-profile/internal/storage"
)

const shutdownGrace = 30 * time.Second

// App wires settings, run history and the merge service together.
type App struct {
	settings config.Settings
	logger   *slog.Logger
	out      io.Writer

	db     *storage.DB
	merges *service.MergeService
}

// New creates a new App. The summary report is written to out.
func New(settings config.Settings, logger *slog.Logger, out io.Writer) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{settings: settings, logger: logger, out: out}
}

// Startup opens the history database and builds the merge service. History
// is optional: a database that cannot be opened is logged and the merge runs
// without it.
func (a *App) Startup(ctx context.Context) error {
	opts := service.Options{
		Emitter: &service.LogEmitter{Logger: a.logger},
		Logger:  a.logger,
		Report:  a.out,
	}

	if a.settings.History {
		db, err := storage.New(a.settings.HistoryPath)
		if err != nil {
			a.logger.Warn("run history disabled", "path", a.settings.HistoryPath, "error", err)
		} else {
			a.db = db
			opts.History = storage.NewRunLogStore(db)
		}
	}

	a.merges = service.NewMergeService(a.settings.Job(), opts)
	a.logLastRun()
	return nil
}

// logLastRun reports the previous merge recorded in history, if any.
func (a *App) logLastRun() {
	runs, err := a.merges.ListRuns(1)
	if err != nil {
		a.logger.Warn("read run history", "error", err)
		return
	}
	if len(runs) == 0 {
		return
	}
	last := runs[0]
	a.logger.Info("previous merge",
		"id", last.ID,
		"status", last.Status,
		"started", last.StartedAt.Format(time.RFC3339),
		"schools", last.SchoolsTotal,
	)
}

// Merges returns the merge service. Nil before Startup.
func (a *App) Merges() *service.MergeService {
	return a.merges
}

// Run performs the first merge, then keeps re-running on the configured
// trigger until ctx is cancelled. The manual trigger returns after one run.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.merges.RunMerge(ctx); err != nil {
		return err
	}

	switch a.settings.Trigger {
	case config.TriggerFileWatch:
		if err := a.merges.Watch(ctx, a.settings.SourcePaths()); err != nil {
			return err
		}
	case config.TriggerSchedule:
		if err := a.merges.Schedule(ctx, a.settings.Schedule); err != nil {
			return err
		}
	default:
		return nil
	}

	a.logger.Info("waiting for triggers", "trigger", a.settings.Trigger)
	<-ctx.Done()
	return nil
}

// Shutdown stops triggers, waits for an in-flight merge and closes storage.
func (a *App) Shutdown() {
	if a.merges != nil {
		a.merges.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		a.merges.WaitRunning(ctx)
		cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close history database", "error", err)
		}
	}
}

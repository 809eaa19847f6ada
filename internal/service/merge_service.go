package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
	"github.com/andrewoneill45-ctrl/school-profile/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Merge Service: runs the merge and owns its triggers
// ─────────────────────────────────────────────────────────────

// ErrRunInProgress is returned when a merge is requested while one runs.
var ErrRunInProgress = errors.New("merge already running")

const (
	mergeKey       = "merge"
	watchDebounce  = 500 * time.Millisecond
	defaultRunsMax = 50
)

// Options configures a MergeService. Zero values are valid.
type Options struct {
	History domain.RunLogStore // nil disables history
	Emitter EventEmitter
	Logger  *slog.Logger
	Report  io.Writer // receives the summary after each successful run
}

// MergeService runs merge jobs and the triggers that repeat them.
type MergeService struct {
	engine  *etl.Engine
	job     *etl.Job
	history domain.RunLogStore
	emitter EventEmitter
	logger  *slog.Logger
	report  io.Writer
	guard   runGuard

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewMergeService creates a MergeService ready for use.
func NewMergeService(job *etl.Job, opts Options) *MergeService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = &LogEmitter{Logger: logger}
	}
	return &MergeService{
		engine:  &etl.Engine{Logger: logger},
		job:     job,
		history: opts.History,
		emitter: emitter,
		logger:  logger,
		report:  opts.Report,
	}
}

// ── Run ────────────────────────────────────────────────────

// RunMerge executes the merge synchronously, records it and emits the outcome.
func (s *MergeService) RunMerge(ctx context.Context) (*etl.Result, error) {
	if !s.guard.TryLock(mergeKey) {
		return nil, ErrRunInProgress
	}
	defer s.guard.Unlock(mergeKey)

	start := time.Now()
	result, runErr := s.engine.Run(ctx, s.job)

	run := &domain.MergeRun{
		StartedAt:  start,
		FinishedAt: time.Now(),
		Status:     domain.RunSuccess,
		Datasets:   lo.Map(result.Merges, func(m etl.MergeResult, _ int) domain.DatasetRun { return m.DatasetRun() }),
	}
	if result.Report != nil {
		run.SchoolsTotal = result.Report.Total
	}
	run.OutputBytes = result.OutputBytes
	if runErr != nil {
		run.Status = domain.RunError
		run.Error = runErr.Error()
	}
	s.recordRun(run)

	if runErr != nil {
		s.emitter.Emit(ctx, EventMergeFailed, run.Error)
		return result, runErr
	}

	s.logger.Info("merge finished",
		"schools", run.SchoolsTotal,
		"size", humanize.IBytes(uint64(result.OutputBytes)),
		"duration", result.Duration.Round(time.Millisecond),
	)
	if s.report != nil {
		if err := result.Report.Print(s.report); err != nil {
			s.logger.Warn("print report", "error", err)
		}
	}
	s.emitter.Emit(ctx, EventMergeCompleted, run)
	return result, nil
}

// recordRun stores the run. History is best effort; the merge already happened.
func (s *MergeService) recordRun(run *domain.MergeRun) {
	if s.history == nil {
		return
	}
	if err := s.history.CreateRun(run); err != nil {
		s.logger.Warn("record merge run", "error", err)
	}
}

// ListRuns returns the last runs, newest first.
func (s *MergeService) ListRuns(limit int) ([]domain.MergeRun, error) {
	if s.history == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultRunsMax
	}
	return s.history.ListRuns(limit)
}

// Running reports whether a merge is in flight.
func (s *MergeService) Running() bool {
	return s.guard.Running(mergeKey)
}

// ── Triggers (cron + file_watch) ──────────────────────────

// triggered runs a merge from a trigger; failures are logged, not returned.
func (s *MergeService) triggered(ctx context.Context, reason string) {
	s.logger.Info("merge triggered", "reason", reason)
	if _, err := s.RunMerge(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Info("merge skipped, previous run still in progress", "reason", reason)
			return
		}
		s.logger.Error("triggered merge failed", "reason", reason, "error", err)
	}
}

// Schedule re-runs the merge on a cron expression until Stop.
func (s *MergeService) Schedule(ctx context.Context, expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New()
	if _, err := c.AddFunc(expr, func() { s.triggered(ctx, "schedule") }); err != nil {
		return errors.Wrapf(err, "invalid schedule %q", expr)
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
	}
	c.Start()
	s.cronSched = c
	s.logger.Info("merge scheduled", "schedule", expr)
	return nil
}

// Watch re-runs the merge when any of paths is written or recreated.
// Directories are watched rather than files so replace-by-rename is seen.
func (s *MergeService) Watch(ctx context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}

	watched := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return errors.Wrapf(err, "bad path %q", p)
		}
		watched[absPath] = true

		dir := filepath.Dir(absPath)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return errors.Wrapf(err, "watch dir %q", dir)
		}
		watchedDirs[dir] = true
	}

	s.stopWatcherLocked()
	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel
	s.watcher = watcher

	go s.watchLoop(watchCtx, watcher, watched)

	s.logger.Info("watching exports", "files", len(watched))
	return nil
}

func (s *MergeService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, watched map[string]bool) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			if !watched[absPath] {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				s.triggered(ctx, "file changed: "+absPath)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// WaitRunning blocks until the running merge finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *MergeService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the watcher and scheduler. It is safe to call repeatedly.
func (s *MergeService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}

func (s *MergeService) stopWatcherLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

package service_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
	"github.com/andrewoneill45-ctrl/school-profile/internal/etl"
	"github.com/andrewoneill45-ctrl/school-profile/internal/etl/sources"
	"github.com/andrewoneill45-ctrl/school-profile/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────

type memHistory struct {
	mu   sync.Mutex
	runs []domain.MergeRun
}

func (h *memHistory) CreateRun(run *domain.MergeRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	run.ID = "run-" + string(rune('a'+len(h.runs)))
	h.runs = append(h.runs, *run)
	return nil
}

func (h *memHistory) ListRuns(limit int) ([]domain.MergeRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.MergeRun, 0, len(h.runs))
	for i := len(h.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.runs[i])
	}
	return out, nil
}

func (h *memHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

// blockingCollection holds Load until release is closed.
type blockingCollection struct {
	release chan struct{}
}

func (c *blockingCollection) Load(ctx context.Context) (*etl.SchoolStore, error) {
	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return etl.NewSchoolStore(domain.IdentifierField, nil)
}

func (c *blockingCollection) Save(context.Context, *etl.SchoolStore) (int64, error) {
	return 2, nil
}

type fixture struct {
	schools string
	ks4     string
	ks2     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		schools: filepath.Join(dir, "schools.json"),
		ks4:     filepath.Join(dir, "ks4.csv"),
		ks2:     filepath.Join(dir, "ks2.csv"),
	}
	require.NoError(t, os.WriteFile(f.schools, []byte(`[{"urn":"100001"},{"urn":"100002"}]`), 0o644))
	require.NoError(t, os.WriteFile(f.ks4, []byte("RECTYPE,URN,ATT8SCR\n1,100001,50.0\n"), 0o644))
	require.NoError(t, os.WriteFile(f.ks2, []byte("RECTYPE,URN,PTRWM_EXP\n1,100002,70\n"), 0o644))
	return f
}

func (f fixture) job() *etl.Job {
	return &etl.Job{
		Collection: &sources.JSONFile{Path: f.schools, IDField: domain.IdentifierField},
		Sources: []etl.DatasetSource{
			{Dataset: domain.KS4(), SourceType: sources.CSVFileType, SourceCfg: etl.SourceConfig{"filePath": f.ks4}},
			{Dataset: domain.KS2(), SourceType: sources.CSVFileType, SourceCfg: etl.SourceConfig{"filePath": f.ks2}},
		},
		ReportFields: domain.DefaultReportFields(),
	}
}

// ─────────────────────────────────────────────────────────────
// MergeService tests
// ─────────────────────────────────────────────────────────────

func TestMergeService_RunMergeSuccess(t *testing.T) {
	f := newFixture(t)
	history := &memHistory{}
	emitter := &service.MockEmitter{}
	var report bytes.Buffer
	svc := service.NewMergeService(f.job(), service.Options{History: history, Emitter: emitter, Report: &report})

	res, err := svc.RunMerge(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Merges, 2)

	out, err := os.ReadFile(f.schools)
	require.NoError(t, err)
	assert.Equal(t, `[{"urn":"100001","attainment8":50},{"urn":"100002","ks2_rwm_exp":70}]`, string(out))

	assert.Equal(t, []string{service.EventMergeCompleted}, emitter.Names())
	assert.Contains(t, report.String(), "Matched KS4")

	runs, err := svc.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, domain.RunSuccess, run.Status)
	assert.Equal(t, 2, run.SchoolsTotal)
	assert.Equal(t, int64(len(out)), run.OutputBytes)
	require.Len(t, run.Datasets, 2)
	assert.Equal(t, "ks4", run.Datasets[0].Dataset)
	assert.Equal(t, 1, run.Datasets[0].SchoolsMatched)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.False(t, svc.Running())
}

func TestMergeService_RunMergeFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.ks2))
	history := &memHistory{}
	emitter := &service.MockEmitter{}
	var report bytes.Buffer
	svc := service.NewMergeService(f.job(), service.Options{History: history, Emitter: emitter, Report: &report})

	_, err := svc.RunMerge(context.Background())
	require.Error(t, err)

	assert.Equal(t, []string{service.EventMergeFailed}, emitter.Names())
	assert.Empty(t, report.String())

	runs, err := svc.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "ks2")
	assert.Len(t, runs[0].Datasets, 1, "ks4 finished before ks2 failed")
}

func TestMergeService_RejectsConcurrentRun(t *testing.T) {
	col := &blockingCollection{release: make(chan struct{})}
	svc := service.NewMergeService(&etl.Job{Collection: col}, service.Options{Emitter: &service.MockEmitter{}})

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.RunMerge(context.Background())
		errCh <- err
	}()
	require.Eventually(t, svc.Running, time.Second, 5*time.Millisecond)

	_, err := svc.RunMerge(context.Background())
	assert.ErrorIs(t, err, service.ErrRunInProgress)

	close(col.release)
	require.NoError(t, <-errCh)
	assert.False(t, svc.Running())
}

func TestMergeService_ListRunsWithoutHistory(t *testing.T) {
	svc := service.NewMergeService(&etl.Job{}, service.Options{})

	runs, err := svc.ListRuns(5)
	require.NoError(t, err)
	assert.Nil(t, runs)
}

func TestMergeService_Schedule(t *testing.T) {
	svc := service.NewMergeService(newFixture(t).job(), service.Options{Emitter: &service.MockEmitter{}})
	defer svc.Stop()

	assert.Error(t, svc.Schedule(context.Background(), "every tuesday"))
	assert.NoError(t, svc.Schedule(context.Background(), "0 6 * * *"))
	assert.NoError(t, svc.Schedule(context.Background(), "@hourly"), "rescheduling replaces the previous cron")
}

func TestMergeService_StopIdempotent(t *testing.T) {
	svc := service.NewMergeService(&etl.Job{}, service.Options{})
	svc.Stop()
	svc.Stop()
}

func TestMergeService_WatchRerunsOnChange(t *testing.T) {
	f := newFixture(t)
	history := &memHistory{}
	svc := service.NewMergeService(f.job(), service.Options{History: history, Emitter: &service.MockEmitter{}})
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Watch(ctx, []string{f.ks4, f.ks2}))

	require.NoError(t, os.WriteFile(f.ks4, []byte("RECTYPE,URN,ATT8SCR\n1,100001,61.0\n"), 0o644))

	require.Eventually(t, func() bool { return history.count() >= 1 }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return !svc.Running() }, 5*time.Second, 20*time.Millisecond)

	out, err := os.ReadFile(f.schools)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"attainment8":61`)
}

func TestMergeService_WatchIgnoresOtherFiles(t *testing.T) {
	f := newFixture(t)
	history := &memHistory{}
	svc := service.NewMergeService(f.job(), service.Options{History: history, Emitter: &service.MockEmitter{}})
	defer svc.Stop()

	require.NoError(t, svc.Watch(context.Background(), []string{f.ks4}))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(f.ks4), "notes.txt"), []byte("x"), 0o644))

	time.Sleep(800 * time.Millisecond)
	assert.Equal(t, 0, history.count())
}

package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
)

// RunLogStore implements persistence for merge run history.
type RunLogStore struct {
	db *DB
}

var _ domain.RunLogStore = (*RunLogStore)(nil)

// NewRunLogStore creates a new RunLogStore.
func NewRunLogStore(db *DB) *RunLogStore {
	return &RunLogStore{db: db}
}

// ── Run Logs ───────────────────────────────────────────────

// CreateRun stores a run and its dataset counters, assigning run.ID.
func (s *RunLogStore) CreateRun(run *domain.MergeRun) error {
	run.ID = uuid.New().String()

	tx, err := s.db.conn.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO merge_runs (id, started_at, finished_at, status, error, schools_total, output_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Status, run.Error, run.SchoolsTotal, run.OutputBytes,
	)
	if err != nil {
		return errors.Wrap(err, "insert run")
	}

	for _, d := range run.Datasets {
		_, err := tx.Exec(
			`INSERT INTO merge_run_datasets (run_id, dataset, rows_read, rows_qualified, rows_matched, schools_matched, values_written)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, d.Dataset, d.RowsRead, d.RowsQualified, d.RowsMatched, d.SchoolsMatched, d.ValuesWritten,
		)
		if err != nil {
			return errors.Wrapf(err, "insert dataset %s", d.Dataset)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first, with their dataset counters.
func (s *RunLogStore) ListRuns(limit int) ([]domain.MergeRun, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, started_at, finished_at, status, error, schools_total, output_bytes
		 FROM merge_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.MergeRun
	for rows.Next() {
		var r domain.MergeRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Error, &r.SchoolsTotal, &r.OutputBytes); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range runs {
		datasets, err := s.listDatasets(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Datasets = datasets
	}
	return runs, nil
}

func (s *RunLogStore) listDatasets(runID string) ([]domain.DatasetRun, error) {
	rows, err := s.db.conn.Query(
		`SELECT dataset, rows_read, rows_qualified, rows_matched, schools_matched, values_written
		 FROM merge_run_datasets WHERE run_id = ? ORDER BY rowid ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DatasetRun
	for rows.Next() {
		var d domain.DatasetRun
		if err := rows.Scan(&d.Dataset, &d.RowsRead, &d.RowsQualified, &d.RowsMatched, &d.SchoolsMatched, &d.ValuesWritten); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

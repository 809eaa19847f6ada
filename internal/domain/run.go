package domain

import "time"

// RunStatus is the outcome of a merge run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// MergeRun is the persisted history entry of one merge.
type MergeRun struct {
	ID           string       `json:"id"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt"`
	Status       RunStatus    `json:"status"`
	Error        string       `json:"error,omitempty"`
	SchoolsTotal int          `json:"schoolsTotal"`
	OutputBytes  int64        `json:"outputBytes"`
	Datasets     []DatasetRun `json:"datasets"`
}

// DatasetRun holds the per-dataset counters of a merge run.
type DatasetRun struct {
	Dataset        string `json:"dataset"`
	RowsRead       int    `json:"rowsRead"`
	RowsQualified  int    `json:"rowsQualified"`
	RowsMatched    int    `json:"rowsMatched"`
	SchoolsMatched int    `json:"schoolsMatched"`
	ValuesWritten  int    `json:"valuesWritten"`
}

// RunLogStore persists merge run history.
type RunLogStore interface {
	CreateRun(run *MergeRun) error
	ListRuns(limit int) ([]MergeRun, error)
}

package etl

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
)

// ── Merger ─────────────────────────────────────────────────
// Joins one export onto the school store by identifier and copies the
// dataset's mapped columns into the matched records.

// MergeResult counts what a single dataset merge did.
type MergeResult struct {
	Dataset        string
	RowsRead       int
	RowsQualified  int
	RowsMatched    int
	SchoolsMatched int
	ValuesWritten  int
}

// DatasetRun converts the result for run history.
func (r MergeResult) DatasetRun() domain.DatasetRun {
	return domain.DatasetRun{
		Dataset:        r.Dataset,
		RowsRead:       r.RowsRead,
		RowsQualified:  r.RowsQualified,
		RowsMatched:    r.RowsMatched,
		SchoolsMatched: r.SchoolsMatched,
		ValuesWritten:  r.ValuesWritten,
	}
}

// Merge consumes rows until io.EOF and applies ds to the matching schools.
// Rows of another record type or with an unknown identifier are skipped.
func Merge(ctx context.Context, store *SchoolStore, rows RowReader, ds domain.Dataset) (MergeResult, error) {
	result := MergeResult{Dataset: ds.Name}
	filters := []RowFilter{&RecordTypeFilter{Column: ds.RecordTypeColumn, Code: ds.RecordTypeCode}}
	matched := make(map[*School]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, errors.Wrapf(err, "read %s", ds.Name)
		}
		result.RowsRead++

		if !ApplyFilters(row, filters) {
			continue
		}
		result.RowsQualified++

		id, _ := row.Get(ds.IDColumn)
		school, ok := store.Lookup(id)
		if !ok {
			continue
		}
		result.RowsMatched++

		written, primaryHit := applyMappings(school, row, ds.Fields)
		result.ValuesWritten += written
		if primaryHit {
			matched[school] = struct{}{}
		}
	}

	result.SchoolsMatched = len(matched)
	return result, nil
}

// applyMappings copies every present value of row into school. It reports
// the number of fields set and whether any primary field was among them.
func applyMappings(school *School, row Row, mappings []domain.FieldMapping) (int, bool) {
	written := 0
	primaryHit := false
	for _, m := range mappings {
		f, ok := NormalizeCell(row, m.Column, m.Precision).Float64()
		if !ok {
			continue
		}
		school.SetNumber(m.Field, f)
		written++
		if m.Primary {
			primaryHit = true
		}
	}
	return written, primaryHit
}

package etl

import "strings"

// ── Row Filters ────────────────────────────────────────────
// Filters decide which export rows take part in a merge.
// They are composable: a row is kept only if every filter keeps it.

// RowFilter reports whether a row should be merged.
type RowFilter interface {
	Keep(Row) bool
}

// RowFilterFunc adapts a plain function to the RowFilter interface.
type RowFilterFunc func(Row) bool

func (f RowFilterFunc) Keep(r Row) bool { return f(r) }

// RecordTypeFilter keeps rows whose discriminator column equals Code.
// Regional, national and pupil-group rows carry other codes.
type RecordTypeFilter struct {
	Column string
	Code   string
}

func (f *RecordTypeFilter) Keep(r Row) bool {
	v, ok := r.Get(f.Column)
	return ok && strings.TrimSpace(v) == f.Code
}

// ApplyFilters runs a chain of filters on a row.
func ApplyFilters(r Row, fs []RowFilter) bool {
	for _, f := range fs {
		if !f.Keep(r) {
			return false
		}
	}
	return true
}

package etl

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
)

// ── Reporter ───────────────────────────────────────────────
// Observational summary of a finished merge. Nothing here is
// machine-readable output; it is printed for the operator.

// Coverage is the number of schools carrying a tracked field.
type Coverage struct {
	Field string
	Label string
	Count int
}

// MetricStats summarises one numeric field across the collection.
type MetricStats struct {
	Count  int
	Mean   float64
	Median float64
}

// Report is the post-merge summary.
type Report struct {
	Total       int
	Datasets    []MergeResult
	Coverage    []Coverage
	Attainment8 MetricStats
	Progress8   MetricStats
	OutputBytes int64
}

// BuildReport scans the store once per tracked field.
func BuildReport(store *SchoolStore, fields []domain.ReportField, merges []MergeResult, outputBytes int64) *Report {
	schools := store.All()
	r := &Report{
		Total:       len(schools),
		Datasets:    merges,
		OutputBytes: outputBytes,
		Attainment8: FieldStats(schools, "attainment8"),
		Progress8:   FieldStats(schools, "progress8"),
	}
	for _, f := range fields {
		field := f.Field
		r.Coverage = append(r.Coverage, Coverage{
			Field: field,
			Label: f.Label,
			Count: lo.CountBy(schools, func(s *School) bool { return s.Has(field) }),
		})
	}
	return r
}

// FieldStats computes the mean and median of a numeric field over the
// schools carrying it. The median is the element at index n/2 of the
// sorted values.
func FieldStats(schools []*School, field string) MetricStats {
	values := lo.FilterMap(schools, func(s *School, _ int) (float64, bool) {
		return s.Number(field)
	})
	if len(values) == 0 {
		return MetricStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return MetricStats{
		Count:  len(values),
		Mean:   lo.Sum(values) / float64(len(values)),
		Median: sorted[len(sorted)/2],
	}
}

// Count returns the coverage count of a field, or zero if it is not tracked.
func (r *Report) Count(field string) int {
	c, _ := lo.Find(r.Coverage, func(c Coverage) bool { return c.Field == field })
	return c.Count
}

// SizeMB returns the output size in binary megabytes.
func (r *Report) SizeMB() float64 {
	return float64(r.OutputBytes) / 1024 / 1024
}

const reportRule = "============================================="

// Print writes the summary table.
func (r *Report) Print(w io.Writer) error {
	var b strings.Builder
	line := func(label string, n int) {
		fmt.Fprintf(&b, "  %-19s%8s\n", label+":", humanize.Comma(int64(n)))
	}

	b.WriteString("\n" + reportRule + "\n")
	for _, d := range r.Datasets {
		line("Matched "+strings.ToUpper(d.Dataset), d.SchoolsMatched)
	}
	line("Total schools", r.Total)
	for _, c := range r.Coverage {
		line("With "+c.Label, c.Count)
	}
	if r.Attainment8.Count > 0 {
		fmt.Fprintf(&b, "  %-19s%8.1f / %.1f\n", "A8 mean / median:", r.Attainment8.Mean, r.Attainment8.Median)
	}
	if r.Progress8.Count > 0 {
		fmt.Fprintf(&b, "  %-19s%8.2f\n", "P8 mean:", r.Progress8.Mean)
	}
	fmt.Fprintf(&b, "  %-19s%7.1f MB\n", "File size:", r.SizeMB())
	b.WriteString(reportRule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

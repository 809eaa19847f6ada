package etl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
	"github.com/andrewoneill45-ctrl/school-profile/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Reporter
// ─────────────────────────────────────────────────────────────

func TestBuildReport_Coverage(t *testing.T) {
	store := loadStore(t, `[
		{"urn": "1", "attainment8": 40, "progress8": -0.5, "fsm_pct": 20.1},
		{"urn": "2", "attainment8": 50, "ks2_rwm_exp": 61},
		{"urn": "3", "attainment8": 60, "progress8": 0.25},
		{"urn": "4"}
	]`)
	merges := []etl.MergeResult{{Dataset: "ks4", SchoolsMatched: 3}, {Dataset: "ks2", SchoolsMatched: 1}}

	r := etl.BuildReport(store, domain.DefaultReportFields(), merges, 2048)

	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 3, r.Count("attainment8"))
	assert.Equal(t, 2, r.Count("progress8"))
	assert.Equal(t, 0, r.Count("basics_94"))
	assert.Equal(t, 1, r.Count("fsm_pct"))
	assert.Equal(t, 1, r.Count("ks2_rwm_exp"))
	assert.Equal(t, 0, r.Count("ks2_read_avg"))
	assert.Equal(t, 0, r.Count("not_tracked"))

	assert.Equal(t, 3, r.Attainment8.Count)
	assert.InDelta(t, 50.0, r.Attainment8.Mean, 1e-9)
	assert.Equal(t, 50.0, r.Attainment8.Median)
	assert.Equal(t, 2, r.Progress8.Count)
	assert.InDelta(t, -0.125, r.Progress8.Mean, 1e-9)
}

func TestFieldStats_MedianTakesUpperMiddle(t *testing.T) {
	store := loadStore(t, `[{"urn":"1","a":70},{"urn":"2","a":40},{"urn":"3","a":60},{"urn":"4","a":50}]`)

	s := etl.FieldStats(store.All(), "a")
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 55.0, s.Mean)
	assert.Equal(t, 60.0, s.Median)

	assert.Equal(t, etl.MetricStats{}, etl.FieldStats(store.All(), "missing"))
}

func TestReport_Print(t *testing.T) {
	schools := make([]*etl.School, 0, 1234)
	for i := 0; i < 1234; i++ {
		s := etl.NewSchool()
		s.SetNumber(domain.IdentifierField, float64(100000+i))
		if i < 2 {
			s.SetNumber("attainment8", 45)
		}
		schools = append(schools, s)
	}
	store, err := etl.NewSchoolStore(domain.IdentifierField, schools)
	require.NoError(t, err)

	r := etl.BuildReport(store, domain.DefaultReportFields(), []etl.MergeResult{{Dataset: "ks4", SchoolsMatched: 2}}, 1572864)

	var b strings.Builder
	require.NoError(t, r.Print(&b))
	out := b.String()

	assert.Contains(t, out, "=============================================")
	assert.Regexp(t, `Matched KS4:\s+2\n`, out)
	assert.Regexp(t, `Total schools:\s+1,234\n`, out)
	assert.Regexp(t, `With Attainment 8:\s+2\n`, out)
	assert.Regexp(t, `With KS2 Reading:\s+0\n`, out)
	assert.Regexp(t, `A8 mean / median:\s+45\.0 / 45\.0\n`, out)
	assert.NotContains(t, out, "P8 mean")
	assert.Regexp(t, `File size:\s+1\.5 MB\n`, out)
}

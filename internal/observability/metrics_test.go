package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/pacewise/internal/models"
)

func TestRecordViolations(t *testing.T) {
	m := New()
	m.RecordViolations([]models.ViolationReport{
		{RuleID: "threshold_cap_exceeded", Severity: models.SeverityError},
		{RuleID: "threshold_cap_exceeded", Severity: models.SeverityError},
		{RuleID: "long_session_share_exceeded", Severity: models.SeverityWarning},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.violations.WithLabelValues("threshold_cap_exceeded", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("long_session_share_exceeded", "warning")))
}

func TestRecordOutcome(t *testing.T) {
	m := New()
	m.RecordOutcome(OutcomeAccepted, 1)
	m.RecordOutcome(OutcomeAccepted, 3)
	m.RecordOutcome(OutcomeInvalid, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.planOutcomes.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planOutcomes.WithLabelValues(OutcomeInvalid)))

	expected := `
# HELP pacewise_planner_attempts Distribute and validate rounds needed per plan generation.
# TYPE pacewise_planner_attempts histogram
pacewise_planner_attempts_bucket{le="1"} 1
pacewise_planner_attempts_bucket{le="2"} 1
pacewise_planner_attempts_bucket{le="3"} 2
pacewise_planner_attempts_bucket{le="4"} 2
pacewise_planner_attempts_bucket{le="6"} 2
pacewise_planner_attempts_bucket{le="8"} 2
pacewise_planner_attempts_bucket{le="+Inf"} 2
pacewise_planner_attempts_sum 4
pacewise_planner_attempts_count 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "pacewise_planner_attempts"))
}

func TestRecordReplay(t *testing.T) {
	m := New()
	m.RecordReplay(30)
	m.RecordReplay(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.replayAthletes))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.replayedDays))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordOutcome(OutcomeRejected, 4)

	path := filepath.Join(t.TempDir(), "pacewise.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pacewise_planner_outcomes_total{outcome="rejected"} 1`)

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordOutcome(OutcomeAccepted, 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.planOutcomes.WithLabelValues(OutcomeAccepted)))
}

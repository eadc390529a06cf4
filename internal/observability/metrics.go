// Package observability holds the prometheus collectors for plan generation and
// metrics replay. Collectors live on a private registry so a CLI run can dump them
// to a node-exporter textfile.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/pacewise/internal/models"
)

const namespace = "pacewise"

// Plan outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
)

type Metrics struct {
	registry *prometheus.Registry

	planAttempts   prometheus.Histogram
	planOutcomes   *prometheus.CounterVec
	violations     *prometheus.CounterVec
	replayedDays   prometheus.Counter
	replayAthletes prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		planAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "attempts",
			Help:      "Distribute and validate rounds needed per plan generation.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8},
		}),
		planOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "outcomes_total",
			Help:      "Plan generations by outcome.",
		}, []string{"outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guardrails",
			Name:      "violations_total",
			Help:      "Guardrail violations by rule and severity.",
		}, []string{"rule", "severity"}),
		replayedDays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "replayed_days_total",
			Help:      "Daily snapshots computed by replays.",
		}),
		replayAthletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "replayed_athletes_total",
			Help:      "Athlete histories replayed.",
		}),
	}
	m.registry.MustRegister(m.planAttempts, m.planOutcomes, m.violations, m.replayedDays, m.replayAthletes)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordViolations counts every violation of one validation round.
func (m *Metrics) RecordViolations(violations []models.ViolationReport) {
	for _, v := range violations {
		m.violations.WithLabelValues(v.RuleID, string(v.Severity)).Inc()
	}
}

// RecordOutcome counts a finished plan generation.
func (m *Metrics) RecordOutcome(outcome string, attempts int) {
	m.planOutcomes.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		m.planAttempts.Observe(float64(attempts))
	}
}

// RecordReplay counts one athlete's replay.
func (m *Metrics) RecordReplay(days int) {
	m.replayAthletes.Inc()
	m.replayedDays.Add(float64(days))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

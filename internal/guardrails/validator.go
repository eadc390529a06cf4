// Package guardrails checks proposed week plans against a catalog of safety rules.
package guardrails

import (
	"fmt"
	"strings"

	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/models"
)

// Context is everything besides the plan that the rules look at.
type Context struct {
	Constraints     models.AthleteConstraints
	MinEasyDistance float64 // 0 uses constants.DefaultMinEasyDistance
	MinLongDistance float64 // 0 uses constants.DefaultMinLongDistance
	Granularity     float64 // 0 uses constants.DefaultGranularity
	// History holds completed weeks before the plan, oldest first.
	History []models.WeekSummary
	// Snapshot is the latest metrics snapshot, if any.
	Snapshot *models.MetricsSnapshot
	// OtherActivities are non-plan sessions around the plan week, such as cross-training.
	OtherActivities []models.LoadSample
}

func (c Context) minimumFor(category models.SessionCategory) float64 {
	if category == models.CategoryLong {
		if c.MinLongDistance > 0 {
			return c.MinLongDistance
		}
		return constants.DefaultMinLongDistance
	}
	if c.MinEasyDistance > 0 {
		return c.MinEasyDistance
	}
	return constants.DefaultMinEasyDistance
}

func (c Context) granularity() float64 {
	if c.Granularity > 0 {
		return c.Granularity
	}
	return constants.DefaultGranularity
}

// ValidationResult contains every violation found. OK is false when any has error severity.
type ValidationResult struct {
	OK         bool
	Violations []models.ViolationReport
}

// HasErrors returns true if any violation blocks the plan
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors()) > 0
}

func (vr *ValidationResult) Errors() []models.ViolationReport {
	return vr.bySeverity(models.SeverityError)
}

func (vr *ValidationResult) Warnings() []models.ViolationReport {
	return vr.bySeverity(models.SeverityWarning)
}

func (vr *ValidationResult) bySeverity(sev models.Severity) []models.ViolationReport {
	var out []models.ViolationReport
	for _, v := range vr.Violations {
		if v.Severity == sev {
			out = append(out, v)
		}
	}
	return out
}

// Has reports whether ruleID was violated at any severity.
func (vr *ValidationResult) Has(ruleID string) bool {
	_, ok := vr.Find(ruleID)
	return ok
}

// Find returns the first violation of ruleID.
func (vr *ValidationResult) Find(ruleID string) (models.ViolationReport, bool) {
	for _, v := range vr.Violations {
		if v.RuleID == ruleID {
			return v, true
		}
	}
	return models.ViolationReport{}, false
}

// ErrorRuleIDs returns the distinct rule ids with error severity, in catalog order.
func (vr *ValidationResult) ErrorRuleIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, v := range vr.Errors() {
		if !seen[v.RuleID] {
			seen[v.RuleID] = true
			ids = append(ids, v.RuleID)
		}
	}
	return ids
}

// Err returns a GuardrailViolation when the plan is blocked, nil otherwise.
func (vr *ValidationResult) Err() error {
	if vr.OK {
		return nil
	}
	return &perrors.GuardrailViolation{RuleIDs: vr.ErrorRuleIDs()}
}

// FormatReport returns a human-readable report of all violations
func (vr *ValidationResult) FormatReport() string {
	if len(vr.Violations) == 0 {
		return "No guardrail violations."
	}

	var b strings.Builder
	b.WriteString("Guardrail violations:\n")
	for _, v := range vr.Violations {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", v.Severity, v.RuleID, v.Message)
		if v.Recommendation != "" {
			fmt.Fprintf(&b, "    %s\n", v.Recommendation)
		}
	}
	return b.String()
}

// Validator evaluates every enabled rule against a plan. It holds no mutable state.
type Validator struct {
	rules      []Rule
	thresholds Thresholds
}

// New builds a validator from a catalog.
func New(catalog Catalog) (*Validator, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	disabled := make(map[string]bool, len(catalog.Disabled))
	for _, id := range catalog.Disabled {
		disabled[id] = true
	}

	v := &Validator{thresholds: catalog.Thresholds}
	for _, r := range Rules() {
		if disabled[r.ID] {
			continue
		}
		if sev, ok := catalog.Severities[r.ID]; ok {
			r.Severity = sev
		}
		v.rules = append(v.rules, r)
	}
	return v, nil
}

// NewDefault returns a validator over the embedded catalog.
func NewDefault() *Validator {
	v, err := New(DefaultCatalog())
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Validator) Thresholds() Thresholds {
	return v.thresholds
}

// Validate runs every rule; a failing rule never stops the others.
func (v *Validator) Validate(plan models.WeekPlan, ctx Context) ValidationResult {
	result := ValidationResult{OK: true, Violations: []models.ViolationReport{}}

	for _, r := range v.rules {
		for _, f := range r.check(plan, ctx, v.thresholds) {
			sev := r.Severity
			if f.severity != "" {
				sev = f.severity
			}
			result.Violations = append(result.Violations, models.ViolationReport{
				RuleID:         r.ID,
				Scope:          r.Scope,
				Severity:       sev,
				Message:        f.message,
				Recommendation: r.Recommendation,
				Days:           f.days,
			})
			if sev == models.SeverityError {
				result.OK = false
			}
		}
	}
	return result
}

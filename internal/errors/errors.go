package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/pacewise/internal/logger"
)

var (
	// ErrInputValidation marks malformed constraints or records.
	ErrInputValidation = errors.New("invalid input")
	// ErrInfeasible marks a volume distribution that cannot satisfy its minimums.
	ErrInfeasible = errors.New("infeasible constraints")
	// ErrRecalibrationRejected marks a fitness index update inside its cool-down window.
	ErrRecalibrationRejected = errors.New("recalibration rejected")
	// ErrGuardrailViolation marks a plan that failed an error-severity rule.
	ErrGuardrailViolation = errors.New("guardrail violation")
)

// InputValidationError describes a malformed field of a record or constraint set.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InputValidationError) Unwrap() error { return ErrInputValidation }

// Invalid builds an InputValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return &InputValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InfeasibleConstraintError is returned when no allowed session count can meet the minimums
// or the caps. A target too small for the minimums reports MinimumRequired, the least volume
// achievable at SessionCount; a target too large for the caps reports MaxAchievable.
type InfeasibleConstraintError struct {
	TargetVolume    float64
	SessionCount    int
	MinimumRequired float64 // smallest volume that meets every minimum at SessionCount
	MaxAchievable   float64 // largest volume the session caps allow at SessionCount, 0 if uncapped
	Reason          string
}

func (e *InfeasibleConstraintError) Error() string {
	msg := fmt.Sprintf("cannot distribute %.1f across %d session(s): %s", e.TargetVolume, e.SessionCount, e.Reason)
	switch {
	case e.MinimumRequired > 0 && e.MaxAchievable > 0:
		msg += fmt.Sprintf(" (achievable %.1f to %.1f)", e.MinimumRequired, e.MaxAchievable)
	case e.MinimumRequired > 0:
		msg += fmt.Sprintf(" (minimum required %.1f)", e.MinimumRequired)
	case e.MaxAchievable > 0:
		msg += fmt.Sprintf(" (max achievable %.1f)", e.MaxAchievable)
	}
	return msg
}

func (e *InfeasibleConstraintError) Unwrap() error { return ErrInfeasible }

// RecalibrationRejected is returned when a fitness index is updated too soon.
type RecalibrationRejected struct {
	DerivedAt   string
	NextAllowed string
}

func (e *RecalibrationRejected) Error() string {
	return fmt.Sprintf("fitness index derived %s cannot be recalibrated before %s without an override", e.DerivedAt, e.NextAllowed)
}

func (e *RecalibrationRejected) Unwrap() error { return ErrRecalibrationRejected }

// GuardrailViolation carries the error-severity rule ids a plan failed.
type GuardrailViolation struct {
	RuleIDs []string
}

func (e *GuardrailViolation) Error() string {
	return fmt.Sprintf("plan rejected by guardrails: %s", strings.Join(e.RuleIDs, ", "))
}

func (e *GuardrailViolation) Unwrap() error { return ErrGuardrailViolation }

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

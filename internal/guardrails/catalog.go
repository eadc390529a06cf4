package guardrails

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/pacewise/internal/models"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Thresholds are the numeric limits the rules compare against.
type Thresholds struct {
	ThresholdShareCap      float64 `yaml:"threshold_share_cap" validate:"gt=0,lte=1"`
	IntervalShareCap       float64 `yaml:"interval_share_cap" validate:"gt=0,lte=1"`
	RepetitionShareCap     float64 `yaml:"repetition_share_cap" validate:"gt=0,lte=1"`
	LongShareCap           float64 `yaml:"long_share_cap" validate:"gt=0,lte=1"`
	LongDurationCapMinutes float64 `yaml:"long_duration_cap_minutes" validate:"gt=0"`
	ProgressionCap         float64 `yaml:"progression_cap" validate:"gt=0,lte=1"`
	RecoveryCadenceWeeks   int     `yaml:"recovery_cadence_weeks" validate:"gte=2,lte=12"`
	RecoveryReduction      float64 `yaml:"recovery_reduction" validate:"gt=0,lte=1"`
	HighLowerBodyLoad      float64 `yaml:"high_lower_body_load" validate:"gt=0"`
	LowReadiness           float64 `yaml:"low_readiness" validate:"gte=0,lte=100"`
}

// Catalog configures which rules run and how strictly.
type Catalog struct {
	Thresholds Thresholds                 `yaml:"thresholds"`
	Severities map[string]models.Severity `yaml:"severities"`
	Disabled   []string                   `yaml:"disabled"`
}

var catalogValidate = validator.New()

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalogYAML, &c); err != nil {
		panic(fmt.Sprintf("embedded guardrail catalog is invalid: %v", err))
	}
	return c
}

// ParseCatalog overlays YAML data on the embedded catalog. Thresholds missing from
// data keep their defaults.
func ParseCatalog(data []byte) (Catalog, error) {
	c := DefaultCatalog()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse guardrail catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// LoadCatalog reads a catalog override file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read guardrail catalog: %w", err)
	}
	return ParseCatalog(data)
}

func (c Catalog) Validate() error {
	if err := catalogValidate.Struct(c.Thresholds); err != nil {
		return fmt.Errorf("invalid guardrail thresholds: %w", err)
	}
	known := make(map[string]bool)
	for _, r := range Rules() {
		known[r.ID] = true
	}
	for id, sev := range c.Severities {
		if !known[id] {
			return fmt.Errorf("unknown guardrail rule %q", id)
		}
		switch sev {
		case models.SeverityInfo, models.SeverityWarning, models.SeverityError:
		default:
			return fmt.Errorf("rule %s: invalid severity %q", id, sev)
		}
	}
	for _, id := range c.Disabled {
		if !known[id] {
			return fmt.Errorf("unknown guardrail rule %q", id)
		}
	}
	return nil
}

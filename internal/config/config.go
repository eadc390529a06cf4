// Package config loads the YAML configuration that tunes the engine. Every field
// has a default, so a missing default file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/distributor"
	"github.com/julianstephens/pacewise/internal/guardrails"
	"github.com/julianstephens/pacewise/internal/metrics"
	"github.com/julianstephens/pacewise/internal/pace"
	"github.com/julianstephens/pacewise/internal/planner"
)

const DefaultConfigFile = "~/.config/pacewise/config.yaml"

type Config struct {
	// Database is a SQLite file path or a PostgreSQL connection string without a password.
	Database string `yaml:"database" validate:"required"`
	// Profile selects the keyring entry holding the connection string.
	Profile  string    `yaml:"profile,omitempty"`
	Timezone string    `yaml:"timezone,omitempty" validate:"omitempty,timezone"`
	Log      LogConfig `yaml:"log,omitempty"`

	Metrics        MetricsConfig      `yaml:"metrics"`
	Pace           PaceConfig         `yaml:"pace"`
	Planner        PlannerConfig      `yaml:"planner"`
	Guardrails     guardrails.Catalog `yaml:"guardrails"`
	GuardrailsFile string             `yaml:"guardrails_file,omitempty"`

	path string
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=text json logfmt"`
}

// MetricsConfig holds the decay time constants, in days.
type MetricsConfig struct {
	ChronicDays      float64 `yaml:"chronic_days" validate:"gte=1"`
	AcuteDays        float64 `yaml:"acute_days" validate:"gte=1"`
	RatioAcuteDays   float64 `yaml:"ratio_acute_days" validate:"gte=1"`
	RatioChronicDays float64 `yaml:"ratio_chronic_days" validate:"gte=1"`
}

type PaceConfig struct {
	CooldownDays int `yaml:"cooldown_days" validate:"gte=21,lte=28"`
	// ShortEffortStepSeconds fixes the zone spacing per 400 m; 0 uses the banded default.
	ShortEffortStepSeconds float64 `yaml:"short_effort_step_seconds,omitempty" validate:"gte=0,lte=20"`
}

type PlannerConfig struct {
	MaxAttempts         int     `yaml:"max_attempts" validate:"gte=1,lte=10"`
	Granularity         float64 `yaml:"granularity" validate:"gt=0,lte=5"`
	MinEasyDistance     float64 `yaml:"min_easy_distance" validate:"gt=0"`
	MinLongDistance     float64 `yaml:"min_long_distance" validate:"gt=0"`
	MinSessionsFloor    int     `yaml:"min_sessions_floor" validate:"gte=1,lte=7"`
	QualityWorkFraction float64 `yaml:"quality_work_fraction" validate:"gt=0,lte=1"`
	LowReadiness        float64 `yaml:"low_readiness" validate:"gte=0,lte=100"`
	HighLoadRatio       float64 `yaml:"high_load_ratio" validate:"gt=0"`
	// HistoryWeeks is how many accepted weeks feed the cross-week rules.
	HistoryWeeks int `yaml:"history_weeks" validate:"gte=1,lte=12"`
}

var validate = validator.New()

func Default() Config {
	return Config{
		Database: constants.DefaultConfigPath,
		Metrics: MetricsConfig{
			ChronicDays:      constants.ChronicTimeConstant,
			AcuteDays:        constants.AcuteTimeConstant,
			RatioAcuteDays:   constants.RatioAcuteTimeConstant,
			RatioChronicDays: constants.RatioChronicTimeConstant,
		},
		Pace: PaceConfig{
			CooldownDays: int(constants.DefaultRecalibrationCooldown / constants.Day),
		},
		Planner: PlannerConfig{
			MaxAttempts:         constants.DefaultPlannerMaxAttempts,
			Granularity:         constants.DefaultGranularity,
			MinEasyDistance:     constants.DefaultMinEasyDistance,
			MinLongDistance:     constants.DefaultMinLongDistance,
			MinSessionsFloor:    constants.DefaultMinSessionsFloor,
			QualityWorkFraction: constants.DefaultQualityWorkFraction,
			LowReadiness:        constants.DefaultLowReadiness,
			HighLoadRatio:       constants.DefaultHighLoadRatio,
			HistoryWeeks:        constants.DefaultRecoveryCadence,
		},
		Guardrails: guardrails.DefaultCatalog(),
	}
}

// ResolvePath picks the config file: the flag, then PACEWISE_CONFIG, then the default.
// explicit reports whether the file must exist.
func ResolvePath(flag string) (path string, explicit bool) {
	if flag != "" {
		return ExpandHome(flag), true
	}
	if env := os.Getenv(constants.EnvConfigFile); env != "" {
		return ExpandHome(env), true
	}
	return ExpandHome(DefaultConfigFile), false
}

// Load reads the config file over the defaults.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, cfg.finish()
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.GuardrailsFile != "" {
		catalog, err := guardrails.LoadCatalog(cfg.resolveRelative(cfg.GuardrailsFile))
		if err != nil {
			return Config{}, err
		}
		cfg.Guardrails = catalog
	}
	return cfg, cfg.finish()
}

func (c *Config) finish() error {
	c.Database = ExpandHome(c.Database)
	return c.Validate()
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Guardrails.Validate()
}

// Save writes the config as YAML, creating the directory.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Path is the file the config was loaded from.
func (c Config) Path() string {
	return c.path
}

// Dir is the directory holding the config file, used for logs.
func (c Config) Dir() string {
	return filepath.Dir(c.path)
}

func (c Config) resolveRelative(p string) string {
	p = ExpandHome(p)
	if filepath.IsAbs(p) || c.path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.path), p)
}

func (c Config) MetricsEngine() metrics.Config {
	return metrics.Config{
		ChronicTimeConstant:      c.Metrics.ChronicDays,
		AcuteTimeConstant:        c.Metrics.AcuteDays,
		RatioAcuteTimeConstant:   c.Metrics.RatioAcuteDays,
		RatioChronicTimeConstant: c.Metrics.RatioChronicDays,
	}
}

func (c Config) PaceEngine() pace.Config {
	cfg := pace.DefaultConfig()
	cfg.Cooldown = time.Duration(c.Pace.CooldownDays) * constants.Day
	if c.Pace.ShortEffortStepSeconds > 0 {
		cfg.Step = pace.FixedStep(c.Pace.ShortEffortStepSeconds)
	}
	return cfg
}

func (c Config) PlannerConfig() planner.Config {
	return planner.Config{
		MaxAttempts: c.Planner.MaxAttempts,
		Minimums: distributor.Minimums{
			Easy: c.Planner.MinEasyDistance,
			Long: c.Planner.MinLongDistance,
		},
		Granularity:         c.Planner.Granularity,
		MinSessionsFloor:    c.Planner.MinSessionsFloor,
		QualityWorkFraction: c.Planner.QualityWorkFraction,
		LowReadiness:        c.Planner.LowReadiness,
		HighLoadRatio:       c.Planner.HighLoadRatio,
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

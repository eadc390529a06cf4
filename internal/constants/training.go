package constants

const (
	// Exponentially weighted time constants, in days.
	ChronicTimeConstant      = 42.0
	AcuteTimeConstant        = 7.0
	RatioAcuteTimeConstant   = 7.0
	RatioChronicTimeConstant = 28.0

	// RatioEpsilon is the chronic value below which the load ratio is undefined.
	RatioEpsilon = 1e-9

	// Readiness weights. They must sum to 1.0.
	ReadinessFreshnessWeight = 0.20
	ReadinessTrendWeight     = 0.25
	ReadinessSleepWeight     = 0.25
	ReadinessWellnessWeight  = 0.30
	NeutralSubScore          = 50.0

	// DefaultRPE is the moderate effort assumed when an activity carries no intensity signal.
	DefaultRPE = 5.0

	// Fitness index recalibration.
	DefaultRecalibrationCooldown = 21 * Day
	MinRecalibrationCooldown     = 21 * Day
	MaxRecalibrationCooldown     = 28 * Day

	// Short-effort step rule, seconds per 400m between adjacent fast zones.
	DefaultZoneStepSeconds = 6.0

	// Volume distribution.
	DefaultGranularity        = 0.5
	DefaultMinEasyDistance    = 5.0
	DefaultMinLongDistance    = 8.0
	AthleteMinimumFraction    = 0.8
	DefaultLongFractionMin    = 0.25
	DefaultLongFractionMax    = 0.50
	DefaultMinSessionsFloor   = 2
	DefaultPlannerMaxAttempts = 4

	// Guardrail defaults.
	DefaultThresholdShareCap   = 0.10
	DefaultIntervalShareCap    = 0.08
	DefaultRepetitionShareCap  = 0.05
	DefaultLongShareCap        = 0.40
	DefaultLongDurationCapMin  = 150.0
	DefaultProgressionCap      = 0.10
	DefaultRecoveryCadence     = 4
	DefaultRecoveryReduction   = 0.80
	DefaultHighLowerBodyLoad   = 60.0
	DefaultLowReadiness        = 40.0
	DefaultHighLoadRatio       = 1.5
	DefaultQualityWorkFraction = 0.5
)

func init() {
	// Runtime validation: ensure readiness weights sum to 1.0
	sum := ReadinessFreshnessWeight + ReadinessTrendWeight + ReadinessSleepWeight + ReadinessWellnessWeight
	if sum < 0.999 || sum > 1.001 {
		panic("readiness weights must sum to 1.0")
	}
	if DefaultRecalibrationCooldown < MinRecalibrationCooldown || DefaultRecalibrationCooldown > MaxRecalibrationCooldown {
		panic("default recalibration cooldown outside allowed window")
	}
}

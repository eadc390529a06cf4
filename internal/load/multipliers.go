package load

import "github.com/julianstephens/pacewise/internal/models"

// Multiplier scales an activity's load into the two channels.
type Multiplier struct {
	Systemic  float64
	LowerBody float64
}

// UnknownActivityMultiplier is the conservative mid-table entry used for unrecognised types.
var UnknownActivityMultiplier = Multiplier{Systemic: 0.7, LowerBody: 0.5}

// DefaultMultipliers is keyed by activity type with running as the 1.0/1.0 baseline.
var DefaultMultipliers = map[models.ActivityType]Multiplier{
	models.ActivityRunning:      {Systemic: 1.0, LowerBody: 1.0},
	models.ActivityTrailRunning: {Systemic: 1.1, LowerBody: 1.2},
	models.ActivityTreadmill:    {Systemic: 1.0, LowerBody: 0.9},
	models.ActivityHiking:       {Systemic: 0.6, LowerBody: 0.7},
	models.ActivityWalking:      {Systemic: 0.4, LowerBody: 0.5},
	models.ActivitySkiing:       {Systemic: 0.9, LowerBody: 0.7},
	models.ActivityCycling:      {Systemic: 0.85, LowerBody: 0.35},
	models.ActivityElliptical:   {Systemic: 0.8, LowerBody: 0.4},
	models.ActivityRowing:       {Systemic: 0.9, LowerBody: 0.3},
	models.ActivityStrength:     {Systemic: 0.6, LowerBody: 0.6},
	models.ActivitySwimming:     {Systemic: 0.8, LowerBody: 0.1},
	models.ActivityYoga:         {Systemic: 0.3, LowerBody: 0.1},
}

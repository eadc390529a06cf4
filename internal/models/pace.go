package models

import "time"

type Performance struct {
	DistanceMeters float64       `json:"distance_meters" yaml:"distance_meters" validate:"gt=0"`
	Duration       time.Duration `json:"duration" yaml:"duration" validate:"gt=0"`
	Date           string        `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Qualifying     bool          `json:"qualifying" yaml:"qualifying"` // a race result rather than a training effort
}

type FitnessIndex struct {
	Value             float64     `json:"value"`
	DerivedAt         time.Time   `json:"derived_at"`
	SourcePerformance Performance `json:"source_performance"`
	Confidence        Confidence  `json:"confidence"`
}

type Zone string

const (
	ZoneEasy       Zone = "easy"
	ZoneMarathon   Zone = "marathon"
	ZoneThreshold  Zone = "threshold"
	ZoneInterval   Zone = "interval"
	ZoneRepetition Zone = "repetition"
)

// ZoneOrder lists zones from slowest to fastest.
var ZoneOrder = []Zone{ZoneEasy, ZoneMarathon, ZoneThreshold, ZoneInterval, ZoneRepetition}

// PaceRange is expressed in seconds per km. MinPace is the fast end.
type PaceRange struct {
	MinPace float64 `json:"min_pace"`
	MaxPace float64 `json:"max_pace"`
}

func (r PaceRange) Midpoint() float64 {
	return (r.MinPace + r.MaxPace) / 2
}

type PaceZone struct {
	Zone Zone      `json:"zone"`
	Pace PaceRange `json:"pace"`
}

type PaceZoneSource string

const (
	PaceZonesFromIndex       PaceZoneSource = "fitness_index"
	PaceZonesFromShortEffort PaceZoneSource = "short_effort"
)

// PaceZoneSet holds zones ordered slowest to fastest.
type PaceZoneSet struct {
	Zones  []PaceZone     `json:"zones"`
	Source PaceZoneSource `json:"source"`
	Index  float64        `json:"index,omitempty"`
}

// Get returns the pace range for a zone.
func (s PaceZoneSet) Get(z Zone) (PaceRange, bool) {
	for _, pz := range s.Zones {
		if pz.Zone == z {
			return pz.Pace, true
		}
	}
	return PaceRange{}, false
}

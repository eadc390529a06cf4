package models

// LoadRatio is the acute:chronic ratio. It is undefined while there is no chronic load;
// an undefined ratio is never reported as zero.
type LoadRatio struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// UndefinedRatio is the marker returned when the chronic load is zero.
var UndefinedRatio = LoadRatio{}

func DefinedRatio(v float64) LoadRatio {
	return LoadRatio{Value: v, Defined: true}
}

// Channel is the decayed state of one load channel.
type Channel struct {
	Chronic      float64 `json:"chronic"`
	Acute        float64 `json:"acute"`
	RatioAcute   float64 `json:"ratio_acute"`
	RatioChronic float64 `json:"ratio_chronic"`
}

type MetricsSnapshot struct {
	Date                string     `json:"date"` // YYYY-MM-DD format
	DailyLoad           float64    `json:"daily_load"`
	ChronicLoad         float64    `json:"chronic_load"`
	AcuteLoad           float64    `json:"acute_load"`
	Freshness           float64    `json:"freshness"`
	LoadRatio           LoadRatio  `json:"load_ratio"`
	Readiness           float64    `json:"readiness"`
	ReadinessConfidence Confidence `json:"readiness_confidence"`
	Systemic            Channel    `json:"systemic"`
	LowerBody           Channel    `json:"lower_body"`
	DailyLowerBodyLoad  float64    `json:"daily_lower_body_load"`
}

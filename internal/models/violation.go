package models

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type RuleScope string

const (
	ScopeSession   RuleScope = "single_session"
	ScopeWeek      RuleScope = "single_week"
	ScopeCrossWeek RuleScope = "cross_week"
)

type ViolationReport struct {
	RuleID         string    `json:"rule_id"`
	Scope          RuleScope `json:"scope"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
	Days           []int     `json:"days,omitempty"` // sessions involved, if any
}

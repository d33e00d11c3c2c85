package model

import "time"

// Severity is the upstream-declared incident severity.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Sensitivity classifies the data involved in a violation.
type Sensitivity string

const (
	SensPublic       Sensitivity = "Public"
	SensConfidential Sensitivity = "Confidential"
)

// Source identifies which upstream system delivered the event.
type Source string

const (
	SourceSentinel  Source = "sentinel"
	SourcePurview   Source = "purview"
	SourceEventGrid Source = "eventgrid"
	SourceManual    Source = "manual"
)

// KnownSource reports whether s is one of the recognized upstream sources.
func KnownSource(s Source) bool {
	switch s {
	case SourceSentinel, SourcePurview, SourceEventGrid, SourceManual:
		return true
	}
	return false
}

// ViolationEvent is the normalized incoming fact. Adapters convert
// heterogeneous upstream payloads into this one shape before it enters
// the pipeline. Immutable once constructed.
type ViolationEvent struct {
	IncidentID  string      `json:"incident_id"`
	UserUPN     string      `json:"user_upn"`
	Title       string      `json:"title"`
	Content     string      `json:"content,omitempty"`
	Severity    Severity    `json:"severity"`
	Sensitivity Sensitivity `json:"sensitivity"`
	Department  string      `json:"department"`
	Source      Source      `json:"source"`
	ReceivedAt  time.Time   `json:"received_at"`
}

// DedupKey is the normalized incident identifier used by the dispatch
// ledger. Upstream systems number incidents independently, so the raw
// ID is scoped by its source to keep Purview and Sentinel numbering
// spaces from colliding.
func (e ViolationEvent) DedupKey() string {
	return string(e.Source) + ":" + e.IncidentID
}

// RiskLevel is the qualitative band derived from the risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Action is the enforcement outcome for a violation.
type Action string

const (
	WarnAndEducate     Action = "warn_and_educate"
	EscalatedWarning   Action = "escalated_warning"
	SoftRemediation    Action = "soft_remediation"
	HardBlockAndRevoke Action = "hard_block_and_revoke"
)

// DecisionResult is the computed risk assessment for one event.
// Warnings carries data-quality notes (unknown severity or department
// degraded to defaults); they never make the decision fail.
type DecisionResult struct {
	Score         int       `json:"score"`
	Level         RiskLevel `json:"level"`
	Action        Action    `json:"action"`
	Ordinal       int       `json:"ordinal"`
	Socialization bool      `json:"socialization,omitempty"`
	Warnings      []string  `json:"warnings,omitempty"`
}

// NotificationIntent is the value handed to the external notifier
// exactly once per incident. Content is already masked; the raw sample
// never crosses this boundary.
type NotificationIntent struct {
	Recipient     string    `json:"recipient"`
	Subject       Action    `json:"subject"`
	Ordinal       int       `json:"ordinal"`
	MaskedSummary string    `json:"masked_summary"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Socialization bool      `json:"socialization,omitempty"`
}

// EnforcementIntent is emitted only for HardBlockAndRevoke and handed to
// the external account-management collaborator.
type EnforcementIntent struct {
	UserUPN string `json:"user_upn"`
	Reason  string `json:"reason"`
}

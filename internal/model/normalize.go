package model

import "strings"

// NormalizeSeverity maps free-form upstream severity text onto the enum.
// Unknown values degrade to Medium; ok is false so callers can record a
// data-quality warning.
func NormalizeSeverity(s string) (sev Severity, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "informational":
		return SeverityLow, true
	case "medium":
		return SeverityMedium, true
	case "high", "critical":
		return SeverityHigh, true
	default:
		return SeverityMedium, false
	}
}

// NormalizeSensitivity maps a file sensitivity label onto the enum.
// Unknown labels degrade to Public (multiplier 1.0).
func NormalizeSensitivity(s string) (Sensitivity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "general", "":
		return SensPublic, true
	case "confidential", "highly confidential", "restricted", "secret":
		return SensConfidential, true
	default:
		return SensPublic, false
	}
}

// NormalizeSource maps an upstream source name onto the enum.
// Unknown sources degrade to manual.
func NormalizeSource(s string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sentinel", "azure-sentinel", "siem":
		return SourceSentinel, true
	case "purview", "dlp":
		return SourcePurview, true
	case "eventgrid", "event-grid":
		return SourceEventGrid, true
	case "manual", "replay", "":
		return SourceManual, true
	default:
		return SourceManual, false
	}
}

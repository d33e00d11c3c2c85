// Package decision computes the risk assessment for one violation
// event. Decide is a pure function over the event, the user's offense
// history count, and the immutable scoring config: no I/O, no hidden
// state, so every decision is reproducible from its inputs.
package decision

import (
	"fmt"
	"math"

	"github.com/rizkypratama/dlpguard/internal/model"
)

// Engine scores events against a fixed ScoringConfig.
type Engine struct {
	cfg ScoringConfig
}

// New creates an Engine. The config is copied; later mutation of the
// caller's value does not affect scoring.
func New(cfg ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Decide computes the DecisionResult for an event given the number of
// prior completed offenses for the user. It never fails: unknown
// severity or department values degrade to defaults and are recorded as
// warnings on the result.
func (e *Engine) Decide(event model.ViolationEvent, priorOffenses int) model.DecisionResult {
	var warnings []string

	sev := event.Severity
	switch sev {
	case model.SeverityLow, model.SeverityMedium, model.SeverityHigh:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown severity %q, using Medium", string(sev)))
		sev = model.SeverityMedium
	}

	base := float64(e.cfg.SeverityBases.BaseFor(sev))

	if m, ok := e.cfg.SensitivityMultiplier[string(event.Sensitivity)]; ok {
		base *= m
	} else if event.Sensitivity != "" {
		warnings = append(warnings, fmt.Sprintf("unknown sensitivity %q, multiplier 1.0", string(event.Sensitivity)))
	}

	if m, ok := e.cfg.DepartmentMultiplier[event.Department]; ok {
		base *= m
	} else if event.Department != "" {
		warnings = append(warnings, fmt.Sprintf("unknown department %q, multiplier 1.0", event.Department))
	}

	history := priorOffenses * e.cfg.HistoryPointsPer
	if history > e.cfg.HistoryPointsCap {
		history = e.cfg.HistoryPointsCap
	}
	base += float64(history)

	score := int(math.Round(base))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	ordinal := priorOffenses + 1

	return model.DecisionResult{
		Score:         score,
		Level:         e.level(score),
		Action:        e.action(ordinal, score),
		Ordinal:       ordinal,
		Socialization: e.socialization(ordinal),
		Warnings:      warnings,
	}
}

// level maps a score to its risk band.
func (e *Engine) level(score int) model.RiskLevel {
	switch {
	case score < 30:
		return model.RiskLow
	case score < 60:
		return model.RiskMedium
	case score < 80:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}

// action selects the enforcement action. The ordinal is the primary
// key; the score only escalates within the first two ordinals. At the
// hard-block ordinal and beyond the action is unconditional, so repeat
// offenders escalate even when each incident scores low.
func (e *Engine) action(ordinal, score int) model.Action {
	if ordinal >= e.cfg.HardBlockOrdinal {
		return model.HardBlockAndRevoke
	}
	escalated := score >= e.cfg.EscalationScore
	switch ordinal {
	case 1:
		if escalated {
			return model.SoftRemediation
		}
		return model.WarnAndEducate
	default:
		if escalated {
			return model.SoftRemediation
		}
		return model.EscalatedWarning
	}
}

func (e *Engine) socialization(ordinal int) bool {
	for _, o := range e.cfg.SocializationOrdinals {
		if ordinal == o {
			return true
		}
	}
	return false
}

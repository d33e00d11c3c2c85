package decision

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rizkypratama/dlpguard/internal/model"
)

// SeverityBases maps declared severity to the base score.
type SeverityBases struct {
	Low    int `yaml:"low"`
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// BaseFor returns the base score for a severity.
func (sb SeverityBases) BaseFor(s model.Severity) int {
	switch s {
	case model.SeverityLow:
		return sb.Low
	case model.SeverityMedium:
		return sb.Medium
	case model.SeverityHigh:
		return sb.High
	default:
		return sb.Medium
	}
}

// ScoringConfig holds every weight the engine uses. It is immutable
// once handed to New, so the same config always produces the same
// decision for the same inputs.
type ScoringConfig struct {
	SeverityBases         SeverityBases      `yaml:"severity_bases"`
	SensitivityMultiplier map[string]float64 `yaml:"sensitivity_multipliers"`
	DepartmentMultiplier  map[string]float64 `yaml:"department_multipliers"`
	HistoryPointsPer      int                `yaml:"history_points_per_offense"`
	HistoryPointsCap      int                `yaml:"history_points_cap"`
	EscalationScore       int                `yaml:"escalation_score"`
	HardBlockOrdinal      int                `yaml:"hard_block_ordinal"`
	SocializationOrdinals []int              `yaml:"socialization_ordinals"`
}

// DefaultScoringConfig returns the built-in weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SeverityBases: SeverityBases{Low: 20, Medium: 50, High: 80},
		SensitivityMultiplier: map[string]float64{
			string(model.SensPublic):       1.0,
			string(model.SensConfidential): 1.5,
		},
		DepartmentMultiplier: map[string]float64{
			"Finance":   1.5,
			"HR":        1.2,
			"IT":        1.0,
			"Marketing": 1.1,
		},
		HistoryPointsPer:      10,
		HistoryPointsCap:      50,
		EscalationScore:       80,
		HardBlockOrdinal:      3,
		SocializationOrdinals: []int{3, 5},
	}
}

// LoadScoringConfig reads a scoring config from path, falling back to
// defaults when the file does not exist. Zero-valued sections are filled
// from the defaults so a partial file cannot silently zero out a weight.
func LoadScoringConfig(path string) (ScoringConfig, error) {
	cfg := DefaultScoringConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read scoring config: %w", err)
	}

	var loaded ScoringConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("parse scoring config: %w", err)
	}

	if loaded.SeverityBases != (SeverityBases{}) {
		cfg.SeverityBases = loaded.SeverityBases
	}
	if len(loaded.SensitivityMultiplier) > 0 {
		cfg.SensitivityMultiplier = loaded.SensitivityMultiplier
	}
	if len(loaded.DepartmentMultiplier) > 0 {
		cfg.DepartmentMultiplier = loaded.DepartmentMultiplier
	}
	if loaded.HistoryPointsPer > 0 {
		cfg.HistoryPointsPer = loaded.HistoryPointsPer
	}
	if loaded.HistoryPointsCap > 0 {
		cfg.HistoryPointsCap = loaded.HistoryPointsCap
	}
	if loaded.EscalationScore > 0 {
		cfg.EscalationScore = loaded.EscalationScore
	}
	if loaded.HardBlockOrdinal > 0 {
		cfg.HardBlockOrdinal = loaded.HardBlockOrdinal
	}
	if len(loaded.SocializationOrdinals) > 0 {
		cfg.SocializationOrdinals = loaded.SocializationOrdinals
	}

	return cfg, nil
}

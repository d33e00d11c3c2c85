package detect

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config holds operator-defined detection customizations.
type Config struct {
	CustomPatterns []CustomPatternDef `yaml:"custom_patterns"`
}

// CustomPatternDef defines a caller-supplied pattern from config.
// RevealPrefix/RevealSuffix control how many leading and trailing
// characters stay visible after masking; both default to 2.
type CustomPatternDef struct {
	Name         string `yaml:"name"`
	Regex        string `yaml:"regex"`
	RevealPrefix *int   `yaml:"reveal_prefix,omitempty"`
	RevealSuffix *int   `yaml:"reveal_suffix,omitempty"`
}

const defaultCustomReveal = 2

// LoadConfig loads detector config from the given path. Returns a nil
// config (not an error) if the file does not exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read detect config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse detect config: %w", err)
	}

	return &cfg, nil
}

// compileCustom validates and compiles custom patterns. Any invalid
// definition fails the whole compilation: a misconfigured pattern must
// surface at construction, never per call.
func compileCustom(cfg *Config) ([]customPattern, error) {
	if cfg == nil {
		return nil, nil
	}

	var patterns []customPattern
	for i, def := range cfg.CustomPatterns {
		if def.Name == "" {
			return nil, fmt.Errorf("custom_patterns[%d]: name is required", i)
		}
		if def.Regex == "" {
			return nil, fmt.Errorf("custom_patterns[%d]: regex is required", i)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("custom_patterns[%d] %q: invalid regex: %w", i, def.Name, err)
		}
		rw := revealWidths{prefix: defaultCustomReveal, suffix: defaultCustomReveal}
		if def.RevealPrefix != nil {
			if *def.RevealPrefix < 0 {
				return nil, fmt.Errorf("custom_patterns[%d] %q: reveal_prefix must be >= 0", i, def.Name)
			}
			rw.prefix = *def.RevealPrefix
		}
		if def.RevealSuffix != nil {
			if *def.RevealSuffix < 0 {
				return nil, fmt.Errorf("custom_patterns[%d] %q: reveal_suffix must be >= 0", i, def.Name)
			}
			rw.suffix = *def.RevealSuffix
		}
		patterns = append(patterns, customPattern{
			name:   def.Name,
			re:     re,
			reveal: rw,
		})
	}
	return patterns, nil
}

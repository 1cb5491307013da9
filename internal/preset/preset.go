// Package preset loads named risk profiles a UI can prefill the calculator with.
package preset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is one named risk profile entry in YAML.
type Preset struct {
	ID            string  `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	ExposureMode  string  `yaml:"exposure_mode" json:"exposure_mode"`
	RiskMode      string  `yaml:"risk_mode" json:"risk_mode"`
	RiskValue     float64 `yaml:"risk_value" json:"risk_value"`
	MarginCapital float64 `yaml:"margin_capital,omitempty" json:"margin_capital,omitempty"`
}

// File represents the top-level YAML structure.
type File struct {
	Presets []Preset `yaml:"presets"`
}

// Load reads presets from a YAML file and rejects entries the calculator
// could not use.
func Load(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(file.Presets))
	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate preset id %q", p.ID)
		}
		seen[p.ID] = true
	}

	return file.Presets, nil
}

// Validate checks a single preset entry.
func (p Preset) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("preset id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("preset %s: name is required", p.ID)
	}
	if p.ExposureMode != "margin" && p.ExposureMode != "position" {
		return fmt.Errorf("preset %s: exposure_mode must be 'margin' or 'position'", p.ID)
	}
	if p.RiskMode != "amount" && p.RiskMode != "percent" {
		return fmt.Errorf("preset %s: risk_mode must be 'amount' or 'percent'", p.ID)
	}
	if p.RiskMode == "percent" && p.ExposureMode == "position" {
		return fmt.Errorf("preset %s: percent risk requires margin mode", p.ID)
	}
	if p.RiskValue <= 0 {
		return fmt.Errorf("preset %s: risk_value must be positive", p.ID)
	}
	if p.MarginCapital < 0 {
		return fmt.Errorf("preset %s: margin_capital must not be negative", p.ID)
	}
	return nil
}

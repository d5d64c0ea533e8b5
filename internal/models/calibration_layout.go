package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CalibrationTarget is one on-screen calibration point.
type CalibrationTarget struct {
	ID     string  `yaml:"id" json:"id"`
	Top    float64 `yaml:"top" json:"top"`   // percent of viewport height
	Left   float64 `yaml:"left" json:"left"` // percent of viewport width
	Center bool    `yaml:"center" json:"center"`
}

// CalibrationLayout holds all calibration targets.
type CalibrationLayout struct {
	Points []CalibrationTarget `yaml:"points"`
}

// DefaultCalibrationLayout is the 3x3 grid with Pt5 in the middle.
func DefaultCalibrationLayout() *CalibrationLayout {
	offsets := []float64{5, 50, 95}
	layout := &CalibrationLayout{}
	n := 1
	for _, top := range offsets {
		for _, left := range offsets {
			layout.Points = append(layout.Points, CalibrationTarget{
				ID:     fmt.Sprintf("Pt%d", n),
				Top:    top,
				Left:   left,
				Center: n == 5,
			})
			n++
		}
	}
	return layout
}

// LoadCalibrationLayout reads and validates a layout file.
func LoadCalibrationLayout(path string) (*CalibrationLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration layout: %w", err)
	}

	var layout CalibrationLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal calibration layout YAML: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &layout, nil
}

// Validate enforces unique ids and exactly one center point.
func (l *CalibrationLayout) Validate() error {
	if len(l.Points) < 2 {
		return fmt.Errorf("calibration layout needs at least 2 points, got %d", len(l.Points))
	}
	seen := make(map[string]bool, len(l.Points))
	centers := 0
	for _, p := range l.Points {
		if p.ID == "" {
			return fmt.Errorf("calibration point without id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate calibration point %q", p.ID)
		}
		seen[p.ID] = true
		if p.Center {
			centers++
		}
	}
	if centers != 1 {
		return fmt.Errorf("calibration layout needs exactly one center point, got %d", centers)
	}
	return nil
}

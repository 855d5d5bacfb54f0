// SPDX-License-Identifier: MIT
package spectrum

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voiceeq/internal/snapshot"
)

// SurfaceMeasurer reports the size of whatever the chart is drawn on. A
// surface that is not laid out yet may report zero.
type SurfaceMeasurer interface {
	Measure() (width, height int)
}

// FixedSurface is a surface of constant size, such as an SVG file.
type FixedSurface struct {
	Width, Height int
}

func (s FixedSurface) Measure() (int, int) { return s.Width, s.Height }

// ComputeFor lays out snap on the surface's current size.
func ComputeFor(s SurfaceMeasurer, snap snapshot.FrequencySnapshot, adjustments []AdjustmentPoint, margins Margins) Layout {
	w, h := s.Measure()
	return Compute(snap, adjustments, w, h, margins)
}

// adjustmentsDocument accepts the object form of an adjustments file.
type adjustmentsDocument struct {
	Adjustments []AdjustmentPoint `yaml:"adjustments"`
	EQ          []AdjustmentPoint `yaml:"eq"`
}

// ParseAdjustments reads adjustment points from YAML or JSON. The document
// is either a bare list of {frequency, gain} items or an object holding
// that list under "adjustments" or "eq".
func ParseAdjustments(data []byte) ([]AdjustmentPoint, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse adjustments: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var points []AdjustmentPoint
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&points); err != nil {
			return nil, fmt.Errorf("failed to parse adjustments: %w", err)
		}
	case yaml.MappingNode:
		var doc adjustmentsDocument
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse adjustments: %w", err)
		}
		points = doc.Adjustments
		if points == nil {
			points = doc.EQ
		}
	default:
		return nil, errors.New("failed to parse adjustments: expected a list or an object")
	}

	var errs []error
	for i, p := range points {
		if p.FrequencyHz <= 0 {
			errs = append(errs, fmt.Errorf("adjustment %d: frequency must be positive, got %g", i, p.FrequencyHz))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid adjustments: %w", err)
	}
	return points, nil
}

// LoadAdjustments reads and parses an adjustments file.
func LoadAdjustments(path string) ([]AdjustmentPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read adjustments file: %w", err)
	}
	return ParseAdjustments(data)
}

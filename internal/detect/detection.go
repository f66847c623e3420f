// Package detect provides the detection data model and greedy non-maximum
// suppression for per-frame object detections. It has no dependencies beyond
// the standard library so that other consumers (a tracker, an exporter) can
// import the box geometry without pulling anything else in.
package detect

import (
	"encoding/json"
	"fmt"
)

// Box is an axis-aligned bounding box in normalized corner form. Coordinates
// are fractions of the frame size in [0, 1], with (X1, Y1) the top-left
// corner and (X2, Y2) the bottom-right corner. Well-formedness (X1 <= X2,
// Y1 <= Y2, coordinates in range) is the caller's responsibility; nothing in
// this package validates or repairs a box. A zero-width or zero-height box is
// legal and has zero area.
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Area returns the box area in normalized units.
func (b Box) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// MarshalJSON encodes the box in its wire form, the 4-element
// [x1, y1, x2, y2] array produced by the inference side.
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a [x1, y1, x2, y2] array.
func (b *Box) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("invalid box: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("invalid box: expected 4 coordinates, got %d", len(coords))
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// Detection represents one detected object in a single frame.
type Detection struct {
	Box        Box     `json:"bbox"`       // Bounding box in normalized coordinates
	ClassID    int     `json:"class_id"`   // Non-negative model class index
	ClassName  string  `json:"class_name"` // Human-readable label, kept consistent with ClassID
	Confidence float64 `json:"confidence"` // Detection confidence in [0, 1]
}

package detect

import "math"

// IoU calculates the intersection-over-union of two boxes.
// The overlap rectangle's width and height are each clamped at zero, so
// disjoint boxes score 0. When the union is empty (both boxes degenerate)
// the result is 0 rather than a division by zero. For well-formed boxes the
// result is in [0, 1], symmetric in its arguments, and 1.0 for a box
// compared with itself whenever it has positive area.
func IoU(a, b Box) float64 {
	interW := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	interH := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)
	if interW < 0 {
		interW = 0
	}
	if interH < 0 {
		interH = 0
	}

	intersection := interW * interH
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

package detect

import "sort"

// DefaultIoUThreshold is the suppression threshold used when the caller does
// not pick one. Same-class detections overlapping a kept detection at or
// above this IoU are discarded.
const DefaultIoUThreshold = 0.45

// Suppress reduces a batch of detections for one frame to its
// highest-confidence representatives using greedy non-maximum suppression:
//
//  1. Detections are visited in descending confidence order. Equal
//     confidences keep their input order, so the earlier detection wins ties.
//  2. Each unsuppressed detection is kept, and every remaining detection of
//     the same class whose IoU with it is at or above iouThreshold is marked
//     suppressed.
//  3. Detections of different classes never suppress each other, however
//     much they overlap. Classes are compared by ClassName.
//
// The returned slice holds the survivors in descending confidence order; the
// input slice is never reordered or modified. The threshold is used exactly
// as supplied: at 0 every same-class pair compares at or above it, leaving
// one detection per class, while values above 1 disable suppression entirely.
func Suppress(detections []Detection, iouThreshold float64) []Detection {
	if len(detections) == 0 {
		return nil
	}

	// Sort an index slice rather than the detections so the caller's slice
	// stays untouched. SliceStable preserves input order across equal
	// confidences.
	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return detections[order[i]].Confidence > detections[order[j]].Confidence
	})

	suppressed := make([]bool, len(detections))
	kept := make([]Detection, 0, len(detections))

	for i, idx := range order {
		if suppressed[idx] {
			continue
		}
		winner := detections[idx]
		kept = append(kept, winner)

		// Discard weaker overlapping detections of the same class.
		for _, jdx := range order[i+1:] {
			if suppressed[jdx] {
				continue
			}
			other := detections[jdx]
			if other.ClassName != winner.ClassName {
				continue
			}
			if IoU(winner.Box, other.Box) >= iouThreshold {
				suppressed[jdx] = true
			}
		}
	}

	return kept
}

package detect

// Filter narrows a slice of detections to the ones worth keeping.
// Filters never modify their input and preserve relative order, so they can
// run after Suppress without disturbing its confidence ordering.
type Filter func([]Detection) []Detection

// ByMinConfidence returns a filter that drops detections scoring below conf.
func ByMinConfidence(conf float64) Filter {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// ByClasses returns a filter that keeps only detections whose class name is
// listed. With no names it keeps everything.
func ByClasses(names ...string) Filter {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(in []Detection) []Detection {
		if len(allowed) == 0 {
			return in
		}
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if allowed[d.ClassName] {
				out = append(out, d)
			}
		}
		return out
	}
}

// ByMinArea returns a filter that drops detections whose normalized box area
// is below area.
func ByMinArea(area float64) Filter {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Box.Area() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// Chain composes filters into one, applied left to right.
func Chain(filters ...Filter) Filter {
	return func(in []Detection) []Detection {
		out := in
		for _, f := range filters {
			out = f(out)
		}
		return out
	}
}

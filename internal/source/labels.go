package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/ayusman/lookout/internal/detect"
)

// Labels maps model class ids to class names. The id is the zero-based line
// number in the labels file, matching how detection models ship their class
// lists.
type Labels []string

// LoadLabels reads a labels file with one class name per line.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	var labels Labels
	for _, line := range strings.Split(string(data), "\n") {
		labels = append(labels, strings.TrimSpace(line))
	}

	// Drop trailing blank lines without disturbing the ids above them
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	return labels, nil
}

// Name returns the class name for id, or "" when the id is unknown.
func (l Labels) Name(id int) string {
	if id < 0 || id >= len(l) {
		return ""
	}
	return l[id]
}

// Apply fills in missing class names from class ids. Detections that already
// carry a name keep it; this runs at the ingestion boundary, before frames
// reach anything downstream.
func (l Labels) Apply(detections []detect.Detection) {
	if len(l) == 0 {
		return
	}
	for i := range detections {
		if detections[i].ClassName == "" {
			detections[i].ClassName = l.Name(detections[i].ClassID)
		}
	}
}

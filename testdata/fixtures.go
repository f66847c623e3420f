// Package testdata embeds recorded detection sequences used by tests. Each
// recording is a JSON array of frames in the collaborator's wire format.
package testdata

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed frames/*.json
var framesFS embed.FS

// Recording returns the raw JSON of a recorded frame sequence by name.
func Recording(name string) ([]byte, error) {
	data, err := framesFS.ReadFile("frames/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// Recordings lists the names of the embedded frame sequences.
func Recordings() ([]string, error) {
	entries, err := framesFS.ReadDir("frames")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}

	return names, nil
}

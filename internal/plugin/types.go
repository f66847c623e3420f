// Package plugin provides discovery and execution of external alert plugins.
// A plugin is a directory with a manifest.json and an executable; it receives
// a JSON Request on stdin when an alert rule fires and answers with a JSON
// Response on stdout.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/lookout/internal/detect"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request represents an alert sent to a plugin for handling.
type Request struct {
	Action     string             `json:"action"`
	RuleID     string             `json:"rule_id"`
	ClassName  string             `json:"class_name"`
	FrameSeq   int64              `json:"frame_seq"`
	Detections []detect.Detection `json:"detections"`
	Config     json.RawMessage    `json:"config"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// HasAction reports whether the plugin's manifest declares the action.
func (p *Plugin) HasAction(action string) bool {
	for _, a := range p.Manifest.Actions {
		if a == action {
			return true
		}
	}
	return false
}

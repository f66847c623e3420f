// Package main provides an event log plugin.
// It appends fired alerts to a plain text log file for later review.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	RuleID     string          `json:"rule_id"`
	ClassName  string          `json:"class_name"`
	FrameSeq   int64           `json:"frame_seq"`
	Detections []Detection     `json:"detections"`
	Config     json.RawMessage `json:"config"`
}

// Detection carries the detection fields this plugin reports on.
type Detection struct {
	Box        [4]float64 `json:"bbox"`
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
	Confidence float64    `json:"confidence"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// LogConfig defines the per-rule configuration for this plugin.
type LogConfig struct {
	Path string `json:"path"`
}

func main() {
	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	// Handle notify and test actions
	switch req.Action {
	case "notify", "test":
		if err := appendEntry(req); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	// Write success response
	writeSuccessResponse()
}

// appendEntry formats the alert as a single line and appends it to the
// configured log file. Relative paths resolve against the plugin directory,
// which the executor sets as the working directory.
func appendEntry(req Request) error {
	cfg := LogConfig{Path: "alerts.log"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if cfg.Path == "" {
			cfg.Path = "alerts.log"
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf("%s rule=%s class=%s frame=%d count=%d confidence=%.2f\n",
		time.Now().Format(time.RFC3339), req.RuleID, req.ClassName,
		req.FrameSeq, len(req.Detections), bestConfidence(req.Detections))

	_, err = f.WriteString(line)
	return err
}

// bestConfidence returns the highest confidence among the detections.
func bestConfidence(detections []Detection) float64 {
	best := 0.0
	for _, d := range detections {
		if d.Confidence > best {
			best = d.Confidence
		}
	}
	return best
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

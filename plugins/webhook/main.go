// Package main provides a webhook plugin.
// It forwards fired alerts as JSON to a configured HTTP endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
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

// Detection carries the detection fields this plugin forwards.
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

// WebhookConfig defines the per-rule configuration for this plugin.
type WebhookConfig struct {
	URL       string `json:"url"`
	TimeoutMs int    `json:"timeout_ms"`
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
		if err := deliver(req); err != nil {
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

// deliver posts the alert to the configured endpoint and treats any non-2xx
// status as a failure so the host retries on the next matching frame.
func deliver(req Request) error {
	var cfg WebhookConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.URL == "" {
		return fmt.Errorf("url is required")
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 3000
	}

	payload, err := json.Marshal(map[string]interface{}{
		"rule_id":    req.RuleID,
		"class_name": req.ClassName,
		"frame_seq":  req.FrameSeq,
		"detections": req.Detections,
		"fired_at":   time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond}
	resp, err := client.Post(cfg.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
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

// Package source supplies per-frame detection batches from an external
// inference collaborator. The collaborator runs the model; this package only
// manages its lifecycle and decodes the detection JSON it produces.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/lookout/internal/detect"
)

// Default source settings
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
)

// ErrSourceClosed is returned when reading from a source that is not open.
var ErrSourceClosed = errors.New("source is not open")

// ErrStreamEnded is returned when the collaborator has no more frames.
var ErrStreamEnded = errors.New("detection stream ended")

// Frame holds one video frame's worth of raw detections as produced by the
// inference collaborator, in the order the collaborator emitted them.
type Frame struct {
	Seq        int64
	CapturedAt time.Time
	Detections []detect.Detection
}

// Source defines the interface for detection-frame providers.
type Source interface {
	// Open prepares the source for reading.
	Open() error

	// Next blocks until the next frame is available. It returns
	// ErrStreamEnded when the collaborator has finished and ErrSourceClosed
	// when called before Open or after Close. A frame with no detections is
	// valid.
	Next() (*Frame, error)

	// Close releases any resources held by the source.
	Close() error

	// IsOpen reports whether the source is open.
	IsOpen() bool
}

// Config holds configuration options shared by the source implementations.
type Config struct {
	// Command is the collaborator command line for the script source.
	Command []string

	// BaseURL is the collaborator address for the HTTP source.
	BaseURL string

	// PollInterval is how long the HTTP source waits before retrying when
	// the collaborator has no frame ready.
	PollInterval time.Duration

	// Timeout bounds each HTTP request to the collaborator.
	Timeout time.Duration

	// Labels, when set, fills in missing class names on decoded detections.
	Labels Labels
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
	}
}

// wireFrame is the JSON structure the collaborator emits per frame.
type wireFrame struct {
	Seq          int64              `json:"seq"`
	CapturedAtMS int64              `json:"captured_at_ms"`
	Detections   []detect.Detection `json:"detections"`
}

func (w wireFrame) toFrame() *Frame {
	f := &Frame{
		Seq:        w.Seq,
		Detections: w.Detections,
	}
	if w.CapturedAtMS != 0 {
		f.CapturedAt = time.UnixMilli(w.CapturedAtMS)
	}
	return f
}

// ParseFrame decodes a single frame from its wire JSON.
func ParseFrame(data []byte) (*Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	return w.toFrame(), nil
}

// ParseFrames decodes a JSON array of frames, as found in recorded fixtures.
func ParseFrames(data []byte) ([]Frame, error) {
	var ws []wireFrame
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parse frames: %w", err)
	}
	frames := make([]Frame, len(ws))
	for i, w := range ws {
		frames[i] = *w.toFrame()
	}
	return frames, nil
}

package source

import (
	"sync"
	"time"

	"github.com/ayusman/lookout/internal/detect"
)

// ReplaySource plays back pre-recorded frames for testing and demos.
type ReplaySource struct {
	frames []Frame
	index  int
	loop   bool
	delay  time.Duration
	mu     sync.Mutex
	open   bool
}

// NewReplaySource creates a source that serves the given frames in order,
// starting over when loop is set.
func NewReplaySource(frames []Frame, loop bool) *ReplaySource {
	return &ReplaySource{
		frames: frames,
		loop:   loop,
	}
}

// Open rewinds the source and marks it ready.
func (s *ReplaySource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.index = 0
	return nil
}

// Close marks the source closed.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// Next returns the next recorded frame, or ErrStreamEnded once the recording
// is exhausted and the source is not looping.
func (s *ReplaySource) Next() (*Frame, error) {
	// Sleep outside the lock so Close is never held up by the pacing delay
	if d := s.frameDelay(); d > 0 {
		time.Sleep(d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, ErrSourceClosed
	}

	if len(s.frames) == 0 {
		return nil, ErrStreamEnded
	}

	if s.index >= len(s.frames) {
		if s.loop {
			s.index = 0
		} else {
			return nil, ErrStreamEnded
		}
	}

	// Copy the detections so callers can't modify the recording
	recorded := s.frames[s.index]
	s.index++

	frame := Frame{
		Seq:        recorded.Seq,
		CapturedAt: recorded.CapturedAt,
		Detections: make([]detect.Detection, len(recorded.Detections)),
	}
	copy(frame.Detections, recorded.Detections)

	return &frame, nil
}

// IsOpen reports whether the source is open.
func (s *ReplaySource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SetDelay makes Next pause between frames, approximating a live feed.
// Without it a looping replay spins as fast as the consumer can read.
func (s *ReplaySource) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *ReplaySource) frameDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// SetFrames replaces the recording and rewinds.
func (s *ReplaySource) SetFrames(frames []Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// Reset restarts playback from the beginning.
func (s *ReplaySource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}

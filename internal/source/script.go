package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// ScriptSource runs the inference collaborator as a subprocess and reads one
// JSON frame per stdout line. The collaborator is expected to exit once its
// stdin is closed, which is how Close shuts it down.
type ScriptSource struct {
	cfg     Config
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	mu      sync.Mutex
	open    bool
	started bool
}

// NewScriptSource creates a new subprocess-backed source.
// The collaborator process is started lazily on the first read.
func NewScriptSource(cfg Config) (*ScriptSource, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("script source: no command configured")
	}
	return &ScriptSource{cfg: cfg}, nil
}

// Open marks the source ready. The subprocess itself starts on first Next.
func (s *ScriptSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	return nil
}

// Next reads the collaborator's next frame line. A malformed line fails this
// call only; the stream continues on the next one. The read happens outside
// the source lock so Close can end a blocked read by shutting the
// collaborator down.
func (s *ScriptSource) Next() (*Frame, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	if err := s.ensureStarted(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	stdout := s.stdout
	s.mu.Unlock()

	for {
		line, err := stdout.ReadString('\n')
		line = strings.TrimSpace(line)

		if err != nil && line == "" {
			if !s.IsOpen() {
				return nil, ErrSourceClosed
			}
			if err == io.EOF {
				return nil, ErrStreamEnded
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if line == "" {
			continue
		}

		frame, perr := ParseFrame([]byte(line))
		if perr != nil {
			return nil, perr
		}
		s.cfg.Labels.Apply(frame.Detections)
		return frame, nil
	}
}

// Close shuts the collaborator process down and marks the source closed.
func (s *ScriptSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return s.shutdown()
}

// IsOpen reports whether the source is open.
func (s *ScriptSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *ScriptSource) ensureStarted() error {
	if s.started {
		return nil
	}

	s.cmd = exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Collaborator diagnostics go straight through
	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start collaborator: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true

	return nil
}

func (s *ScriptSource) shutdown() error {
	if !s.started {
		return nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

package source

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPSource polls a remote inference service for frames. The service is
// expected to answer GET {base}/health with 200 and GET {base}/frames/next
// with either a frame JSON body (200) or 204 when no frame is ready yet.
type HTTPSource struct {
	cfg    Config
	base   string
	client *http.Client
	mu     sync.Mutex
	open   bool
}

// NewHTTPSource creates a new source backed by a remote inference service.
func NewHTTPSource(cfg Config) (*HTTPSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("http source: no base URL configured")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &HTTPSource{
		cfg:    cfg,
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Open checks that the inference service is reachable.
func (s *HTTPSource) Open() error {
	resp, err := s.client.Get(s.base + "/health")
	if err != nil {
		return fmt.Errorf("inference service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", resp.StatusCode)
	}

	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return nil
}

// Next polls the service until a frame is available. A 204 answer means no
// frame yet; the source waits one poll interval and asks again.
func (s *HTTPSource) Next() (*Frame, error) {
	for {
		if !s.IsOpen() {
			return nil, ErrSourceClosed
		}

		resp, err := s.client.Get(s.base + "/frames/next")
		if err != nil {
			return nil, fmt.Errorf("poll frame: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read frame body: %w", err)
			}
			frame, err := ParseFrame(body)
			if err != nil {
				return nil, err
			}
			s.cfg.Labels.Apply(frame.Detections)
			return frame, nil

		case http.StatusNoContent:
			resp.Body.Close()
			time.Sleep(s.cfg.PollInterval)

		case http.StatusGone:
			resp.Body.Close()
			return nil, ErrStreamEnded

		default:
			resp.Body.Close()
			return nil, fmt.Errorf("poll frame: unexpected status %d", resp.StatusCode)
		}
	}
}

// Close marks the source closed. In-flight polls finish their current wait.
func (s *HTTPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// IsOpen reports whether the source is open.
func (s *HTTPSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

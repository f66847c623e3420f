// Package app wires a detection source, the suppression stage, persistence
// and alert dispatch into one processing pipeline.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/lookout/internal/detect"
	"github.com/ayusman/lookout/internal/plugin"
	"github.com/ayusman/lookout/internal/source"
	"github.com/ayusman/lookout/internal/store"
)

// Pipeline defaults.
const (
	// DefaultPluginTimeoutMs bounds how long a single alert plugin may run.
	DefaultPluginTimeoutMs = 5000
	// pruneInterval is how often the retention pass deletes expired frames.
	pruneInterval = 5 * time.Minute
	// errorBackoff is the pause after a failed source read, so a broken
	// collaborator does not spin the loop.
	errorBackoff = 250 * time.Millisecond
)

// Config holds configuration options for the pipeline.
type Config struct {
	Store           *store.Store
	Source          source.Source
	SourceLabel     string        // recorded with each persisted frame
	IoUThreshold    float64       // <= 0 selects detect.DefaultIoUThreshold
	MinConfidence   float64       // 0 keeps every detection
	Classes         []string      // empty keeps every class
	PluginDir       string        // where alert plugins are discovered
	PluginTimeoutMs int           // <= 0 selects DefaultPluginTimeoutMs
	Retention       time.Duration // 0 keeps persisted frames forever
}

// Result is one processed frame as published to subscribers.
type Result struct {
	FrameID     string             `json:"frame_id,omitempty"`
	Seq         int64              `json:"seq"`
	CapturedAt  time.Time          `json:"captured_at"`
	ProcessedAt time.Time          `json:"processed_at"`
	RawCount    int                `json:"raw_count"`
	KeptCount   int                `json:"kept_count"`
	Detections  []detect.Detection `json:"detections"`
}

// Stats counts pipeline activity since Start.
type Stats struct {
	FramesProcessed int64     `json:"frames_processed"`
	FramesFailed    int64     `json:"frames_failed"`
	DetectionsIn    int64     `json:"detections_in"`
	DetectionsKept  int64     `json:"detections_kept"`
	AlertsFired     int64     `json:"alerts_fired"`
	StartedAt       time.Time `json:"started_at"`
	LastFrameAt     time.Time `json:"last_frame_at"`
}

// App pulls frames from the source and runs each through suppression,
// filtering, persistence and alerting.
type App struct {
	config       Config
	iouThreshold float64
	filter       detect.Filter
	pluginMgr    *plugin.Manager
	pluginExec   *plugin.Executor

	mu        sync.RWMutex
	stopCh    chan struct{}
	done      chan struct{}
	latest    *Result
	stats     Stats
	callbacks []func(Result)
	lastAlert map[string]time.Time
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	iou := config.IoUThreshold
	if iou <= 0 {
		iou = detect.DefaultIoUThreshold
	}

	timeoutMs := config.PluginTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = DefaultPluginTimeoutMs
	}

	var filters []detect.Filter
	if config.MinConfidence > 0 {
		filters = append(filters, detect.ByMinConfidence(config.MinConfidence))
	}
	if len(config.Classes) > 0 {
		filters = append(filters, detect.ByClasses(config.Classes...))
	}

	return &App{
		config:       config,
		iouThreshold: iou,
		filter:       detect.Chain(filters...),
		pluginMgr:    plugin.NewManager(config.PluginDir),
		pluginExec:   plugin.NewExecutor(timeoutMs),
		lastAlert:    make(map[string]time.Time),
	}
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// OnResult registers a callback invoked for every processed frame. Callbacks
// run on the pipeline goroutine and must not block.
func (a *App) OnResult(fn func(Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// Latest returns the most recently processed result, if any frame has been
// processed since Start.
func (a *App) Latest() (Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest == nil {
		return Result{}, false
	}
	return *a.latest, true
}

// Stats returns a snapshot of the pipeline counters.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// IsRunning reports whether the pipeline loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// IoUThreshold returns the suppression threshold the pipeline applies.
func (a *App) IoUThreshold() float64 {
	return a.iouThreshold
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Start opens the source and begins the processing loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.config.Source == nil {
		return errors.New("no detection source configured")
	}

	if err := a.config.Source.Open(); err != nil {
		return fmt.Errorf("opening source: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	a.latest = nil
	a.stats = Stats{StartedAt: time.Now()}
	go a.runPipeline(a.stopCh, a.done)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the processing loop and closes the source. It blocks until the
// pipeline goroutine has exited.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	done := a.done
	a.done = nil
	a.mu.Unlock()

	// Closing the source unblocks a pipeline goroutine waiting in Next
	if err := a.config.Source.Close(); err != nil {
		log.Printf("Error closing source: %v", err)
	}
	<-done

	log.Println("Detection pipeline stopped")
}

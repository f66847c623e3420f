package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ayusman/lookout/internal/app"
	"github.com/ayusman/lookout/internal/config"
	"github.com/ayusman/lookout/internal/server"
	"github.com/ayusman/lookout/internal/source"
	"github.com/ayusman/lookout/internal/store"
)

func main() {
	fmt.Println("Lookout - Object Detection Post-Processing")

	cfg := config.Load()

	// Initialize the store
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// A threshold stored in the database wins over the environment, so a
	// running deployment can be retuned without touching its variables.
	if raw, err := st.Settings().Get("iou_threshold"); err == nil {
		if v, perr := strconv.ParseFloat(raw, 64); perr == nil && v > 0 && v <= 1 {
			log.Printf("Using stored IoU threshold %g", v)
			cfg.IoUThreshold = v
		} else {
			log.Printf("Ignoring stored iou_threshold %q", raw)
		}
	}

	src, err := buildSource(*cfg)
	if err != nil {
		log.Fatalf("Failed to configure detection source: %v", err)
	}

	a := app.New(app.Config{
		Store:           st,
		Source:          src,
		SourceLabel:     cfg.Source,
		IoUThreshold:    cfg.IoUThreshold,
		MinConfidence:   cfg.MinConfidence,
		Classes:         cfg.Classes,
		PluginDir:       cfg.PluginDir,
		PluginTimeoutMs: cfg.PluginTimeoutMs,
		Retention:       time.Duration(cfg.RetentionHours) * time.Hour,
	})

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	} else {
		log.Printf("Discovered %d alert plugins", len(a.PluginManager().List()))
	}

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start detection pipeline: %v", err)
	}

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		log.Println("Shutting down")
		a.Stop()
		st.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", cfg.HTTPAddr)
	if err := srv.ListenAndServe(cfg.HTTPAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildSource constructs the detection source named by the configuration.
func buildSource(cfg config.Config) (source.Source, error) {
	labels := loadLabels(cfg.LabelsPath)

	switch cfg.Source {
	case config.SourceScript:
		if len(cfg.Script) == 0 {
			return nil, errors.New("LOOKOUT_SCRIPT must name the collaborator command")
		}
		sc := source.DefaultConfig()
		sc.Command = cfg.Script
		sc.Labels = labels
		return source.NewScriptSource(sc)

	case config.SourceHTTP:
		sc := source.DefaultConfig()
		sc.BaseURL = cfg.InferenceURL
		sc.Labels = labels
		return source.NewHTTPSource(sc)

	case config.SourceReplay:
		data, err := os.ReadFile(cfg.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("reading replay file: %w", err)
		}
		frames, err := source.ParseFrames(data)
		if err != nil {
			return nil, err
		}
		for i := range frames {
			labels.Apply(frames[i].Detections)
		}
		rs := source.NewReplaySource(frames, true)
		rs.SetDelay(source.DefaultPollInterval)
		return rs, nil

	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// loadLabels reads the class labels file, if one is configured. A missing or
// unreadable file is logged and skipped; detections then keep whatever class
// names the collaborator supplied.
func loadLabels(path string) source.Labels {
	if path == "" {
		return nil
	}
	labels, err := source.LoadLabels(path)
	if err != nil {
		log.Printf("Could not load labels from %s: %v", path, err)
		return nil
	}
	log.Printf("Loaded %d class labels from %s", len(labels), path)
	return labels
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.lookout/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".lookout", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

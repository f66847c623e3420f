// Package config loads the service configuration from the environment, with
// an optional .env file for development setups.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Source kinds accepted by LOOKOUT_SOURCE.
const (
	SourceScript = "script"
	SourceHTTP   = "http"
	SourceReplay = "replay"
)

// Config holds every tunable of the service. Zero values mean "feature off"
// where the field documents it.
type Config struct {
	DBPath          string   // SQLite database path
	HTTPAddr        string   // API listen address
	Source          string   // script, http or replay
	Script          []string // collaborator command line (script source)
	InferenceURL    string   // collaborator base URL (http source)
	ReplayFile      string   // recorded frames JSON (replay source)
	IoUThreshold    float64  // suppression threshold
	MinConfidence   float64  // post-filter confidence floor, 0 = off
	Classes         []string // class allow-list, empty = all
	LabelsPath      string   // class-name labels file, "" = none
	PluginDir       string   // alert plugin directory
	PluginTimeoutMs int      // plugin execution timeout
	RetentionHours  int      // prune frames older than this, 0 = keep forever
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	return &Config{
		DBPath:          getEnv("LOOKOUT_DB_PATH", "lookout.db"),
		HTTPAddr:        getEnv("LOOKOUT_HTTP_ADDR", ":8084"),
		Source:          getEnv("LOOKOUT_SOURCE", SourceScript),
		Script:          getEnvAsFields("LOOKOUT_SCRIPT"),
		InferenceURL:    getEnv("LOOKOUT_INFERENCE_URL", "http://127.0.0.1:9090"),
		ReplayFile:      getEnv("LOOKOUT_REPLAY_FILE", ""),
		IoUThreshold:    getEnvAsFloat("LOOKOUT_IOU_THRESHOLD", 0.45),
		MinConfidence:   getEnvAsFloat("LOOKOUT_MIN_CONFIDENCE", 0),
		Classes:         getEnvAsList("LOOKOUT_CLASSES"),
		LabelsPath:      getEnv("LOOKOUT_LABELS", ""),
		PluginDir:       getEnv("LOOKOUT_PLUGIN_DIR", "plugins"),
		PluginTimeoutMs: getEnvAsInt("LOOKOUT_PLUGIN_TIMEOUT_MS", 5000),
		RetentionHours:  getEnvAsInt("LOOKOUT_RETENTION_HOURS", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using %g", key, value, defaultValue)
		return defaultValue
	}
	return floatValue
}

// getEnvAsList splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// getEnvAsFields splits a value on whitespace, for command lines.
func getEnvAsFields(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	return strings.Fields(value)
}

// Package config loads the TOML configuration consumed in config mode:
// the handler path, the gesture debounce window, and the press-count to
// profile map. Validation failures are fatal at startup; the loaded Config
// is read-only afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml"
)

const (
	DefaultGestureTimeout = 400 * time.Millisecond
	DefaultLogLevel       = "info"
)

// raw mirrors the file schema. Profile keys arrive as strings ("1", "2")
// because TOML table keys are strings; they are normalized below.
type raw struct {
	Handler          string            `toml:"handler"`
	GestureTimeoutMS int64             `toml:"gesture_timeout_ms"`
	LogLevel         string            `toml:"log_level"`
	Profiles         map[string]string `toml:"profiles"`
}

// Config is the validated configuration.
type Config struct {
	Handler        string
	GestureTimeout time.Duration
	LogLevel       string
	Profiles       map[int]string
}

// Parse decodes and validates TOML config text.
func Parse(data []byte) (*Config, error) {
	var r raw
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if r.Handler == "" {
		return nil, fmt.Errorf("invalid config: handler is required")
	}
	if r.GestureTimeoutMS < 0 {
		return nil, fmt.Errorf("invalid config: gesture_timeout_ms must be positive, got %d", r.GestureTimeoutMS)
	}

	cfg := &Config{
		Handler:        r.Handler,
		GestureTimeout: DefaultGestureTimeout,
		LogLevel:       r.LogLevel,
		Profiles:       make(map[int]string, len(r.Profiles)),
	}
	if r.GestureTimeoutMS > 0 {
		cfg.GestureTimeout = time.Duration(r.GestureTimeoutMS) * time.Millisecond
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	// The profile map is sparse by design: unmapped press counts are valid
	// and simply discarded at resolution time.
	for k, name := range r.Profiles {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid config: profile key %q is not a valid press count", k)
		}
		cfg.Profiles[n] = name
	}
	return cfg, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

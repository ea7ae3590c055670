// Package config loads the capture demo configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/logging"
	"gopkg.in/yaml.v3"

	"github.com/thesyncim/videocapture"
)

// Config holds all demo configuration
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Filter  FilterConfig  `yaml:"filter"`
	Log     LogConfig     `yaml:"log"`
}

// CaptureConfig configures the camera
type CaptureConfig struct {
	System      string        `yaml:"system"`       // native, testpattern
	Position    string        `yaml:"position"`     // front, back
	Resolution  string        `yaml:"resolution"`   // Preferred size: 1280x720
	MaxFPS      int           `yaml:"max_fps"`      // Test pattern frame rate
	Duration    time.Duration `yaml:"duration"`     // Run time, 0 runs until interrupted
	SwitchAfter time.Duration `yaml:"switch_after"` // Toggle camera position periodically, 0 disables
}

// FilterConfig configures the stream filter
type FilterConfig struct {
	Scale string `yaml:"scale"` // Output size: 640x360, empty disables
	Mode  string `yaml:"mode"`  // fit, fill, stretch
}

// LogConfig configures logging
type LogConfig struct {
	Level    string        `yaml:"level"`    // error, warn, info, debug, trace
	Interval time.Duration `yaml:"interval"` // Stats reporting interval
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Capture.System == "" {
		c.Capture.System = "native"
	}
	if c.Capture.Position == "" {
		c.Capture.Position = "front"
	}
	if c.Capture.Resolution == "" {
		c.Capture.Resolution = "1280x720"
	}
	if c.Capture.MaxFPS == 0 {
		c.Capture.MaxFPS = 30
	}
	if c.Filter.Mode == "" {
		c.Filter.Mode = "fit"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Interval == 0 {
		c.Log.Interval = time.Second
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Capture.System {
	case "native", "testpattern":
	default:
		return fmt.Errorf("capture.system: unknown system %q", c.Capture.System)
	}
	if _, err := c.Position(); err != nil {
		return fmt.Errorf("capture.position: %w", err)
	}
	if _, err := ParseResolution(c.Capture.Resolution); err != nil {
		return fmt.Errorf("capture.resolution: %w", err)
	}
	if c.Capture.MaxFPS < 0 {
		return fmt.Errorf("capture.max_fps: must not be negative")
	}
	if c.Capture.Duration < 0 || c.Capture.SwitchAfter < 0 {
		return fmt.Errorf("capture: durations must not be negative")
	}
	if c.Filter.Scale != "" {
		if _, err := ParseResolution(c.Filter.Scale); err != nil {
			return fmt.Errorf("filter.scale: %w", err)
		}
	}
	if _, err := c.ScaleMode(); err != nil {
		return fmt.Errorf("filter.mode: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Interval <= 0 {
		return fmt.Errorf("log.interval: must be positive")
	}
	return nil
}

// Position returns the configured camera position.
func (c *Config) Position() (videocapture.CameraPosition, error) {
	return videocapture.ParseCameraPosition(c.Capture.Position)
}

// PreferredResolution returns the configured capture size.
func (c *Config) PreferredResolution() (videocapture.Resolution, error) {
	return ParseResolution(c.Capture.Resolution)
}

// ScaleFilter returns the configured filter, or nil when scaling is disabled.
func (c *Config) ScaleFilter() (*videocapture.ScaleFilter, error) {
	if c.Filter.Scale == "" {
		return nil, nil
	}
	size, err := ParseResolution(c.Filter.Scale)
	if err != nil {
		return nil, err
	}
	mode, err := c.ScaleMode()
	if err != nil {
		return nil, err
	}
	return videocapture.NewScaleFilter(size.Width, size.Height, mode), nil
}

// ScaleMode returns the configured scale mode.
func (c *Config) ScaleMode() (videocapture.ScaleMode, error) {
	switch strings.ToLower(c.Filter.Mode) {
	case "fit":
		return videocapture.ScaleModeFit, nil
	case "fill":
		return videocapture.ScaleModeFill, nil
	case "stretch":
		return videocapture.ScaleModeStretch, nil
	default:
		return 0, fmt.Errorf("unknown scale mode %q", c.Filter.Mode)
	}
}

// LogLevel returns the configured pion log level.
func (c *Config) LogLevel() (logging.LogLevel, error) {
	switch strings.ToLower(c.Log.Level) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", c.Log.Level)
	}
}

// ParseResolution parses "WIDTHxHEIGHT".
func ParseResolution(s string) (videocapture.Resolution, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return videocapture.Resolution{}, fmt.Errorf("invalid resolution %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return videocapture.Resolution{}, fmt.Errorf("invalid resolution %q: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return videocapture.Resolution{}, fmt.Errorf("invalid resolution %q: %w", s, err)
	}
	r := videocapture.Resolution{Width: width, Height: height}
	if r.IsZero() {
		return videocapture.Resolution{}, fmt.Errorf("invalid resolution %q", s)
	}
	return r, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/marionette/internal/timeline"
)

type Config struct {
	Timeline TimelineConfig `yaml:"timeline" toml:"timeline"`
	Device   DeviceConfig   `yaml:"device" toml:"device"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Share    ShareConfig    `yaml:"share" toml:"share"`
}

type TimelineConfig struct {
	TotalFrames int `yaml:"total_frames" toml:"total_frames"`
	FPS         int `yaml:"fps" toml:"fps"`
}

type DeviceConfig struct {
	URL          string   `yaml:"url" toml:"url"`
	Timeout      Duration `yaml:"timeout" toml:"timeout"`
	PollInterval Duration `yaml:"poll_interval" toml:"poll_interval"`
	Listen       string   `yaml:"listen" toml:"listen"` // address of the simulator
}

type StorageConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"` // debug, info, warn, error
	File  string `yaml:"file" toml:"file"`   // optional JSON log file
}

type ShareConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// Duration is a time.Duration written as "250ms", "2s"
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func Default() *Config {
	return &Config{
		Timeline: TimelineConfig{TotalFrames: 100, FPS: 10},
		Device: DeviceConfig{
			URL:          "http://localhost:5000",
			Timeout:      Duration(2 * time.Second),
			PollInterval: Duration(250 * time.Millisecond),
			Listen:       ":5000",
		},
		Storage: StorageConfig{Path: "marionette.db"},
		Log:     LogConfig{Level: "info"},
		Share:   ShareConfig{BaseURL: "http://localhost:5000"},
	}
}

// Load reads a YAML or TOML file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the editor cannot work without
func (c *Config) Validate() error {
	if err := c.TimelineConfig().Validate(); err != nil {
		return err
	}
	if c.Device.PollInterval <= 0 {
		return fmt.Errorf("device.poll_interval must be > 0")
	}
	return nil
}

// TimelineConfig returns the initial axis of the editor
func (c *Config) TimelineConfig() timeline.Config {
	return timeline.Config{TotalFrames: c.Timeline.TotalFrames, FPS: c.Timeline.FPS}
}

// Package config loads packager configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/solsticetv/hls-packager/internal/destination"
	"github.com/solsticetv/hls-packager/internal/hls"
	"github.com/solsticetv/hls-packager/internal/logging"
	"github.com/solsticetv/hls-packager/internal/metrics"
)

// Config is the full packager configuration.
type Config struct {
	Log     logging.Config `yaml:"log"`
	Metrics metrics.Config `yaml:"metrics"`
	Stream  StreamConfig   `yaml:"stream"`
	Local   LocalConfig    `yaml:"local"`
	Remote  RemoteConfig   `yaml:"remote"`
	Perf    PerfConfig     `yaml:"perf"`
}

// StreamConfig describes the logical stream.
type StreamConfig struct {
	// SegmentIntervalSeconds is the target fragment duration.
	SegmentIntervalSeconds int `yaml:"segment_interval_seconds"`

	// Qualities lists the video renditions to encode ("high", "medium",
	// "low"). Audio always runs.
	Qualities []string `yaml:"qualities"`

	// StateFile persists the last assigned sequence id across restarts.
	StateFile string `yaml:"state_file"`
}

// LocalConfig configures the local filesystem destination.
type LocalConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseDir string `yaml:"base_dir"`
}

// RemoteConfig configures the object-store destination.
type RemoteConfig struct {
	Enabled bool `yaml:"enabled"`

	destination.BucketConfig `yaml:",inline"`
}

// PerfConfig configures performance logging.
type PerfConfig struct {
	LogPath string `yaml:"log_path"`
}

// Load reads configuration from path (optional), applies environment
// overrides, and fills defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Log: logging.Config{
			Format: "text",
			Level:  "info",
		},
		Metrics: metrics.Config{
			Enabled: false,
			Address: ":9090",
		},
		Stream: StreamConfig{
			SegmentIntervalSeconds: 6,
			Qualities:              []string{"high", "medium", "low"},
			StateFile:              "./state/sequence.json",
		},
		Local: LocalConfig{
			Enabled: true,
			BaseDir: "./recordings",
		},
		Perf: PerfConfig{
			LogPath: "./performance.csv",
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("SEGMENT_INTERVAL"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Stream.SegmentIntervalSeconds = parsed
		}
	}
	if v := os.Getenv("LOCAL_DIR"); v != "" {
		cfg.Local.Enabled = true
		cfg.Local.BaseDir = v
	}
	if v := os.Getenv("REMOTE_BUCKET"); v != "" {
		cfg.Remote.Enabled = true
		cfg.Remote.Bucket = v
	}
	if v := os.Getenv("REMOTE_ENDPOINT"); v != "" {
		cfg.Remote.Endpoint = v
	}
	if v := os.Getenv("REMOTE_REGION"); v != "" {
		cfg.Remote.Region = v
	}
	if v := os.Getenv("REMOTE_PREFIX"); v != "" {
		cfg.Remote.Prefix = v
	}
}

func (c Config) validate() error {
	if c.Stream.SegmentIntervalSeconds < 1 {
		return fmt.Errorf("segment interval must be at least 1 second, got %d", c.Stream.SegmentIntervalSeconds)
	}
	if !c.Local.Enabled && !c.Remote.Enabled {
		return fmt.Errorf("at least one destination must be enabled")
	}
	if c.Remote.Enabled && c.Remote.Bucket == "" {
		return fmt.Errorf("remote destination enabled without a bucket")
	}
	if _, err := c.Qualities(); err != nil {
		return err
	}
	return nil
}

// Qualities resolves the configured quality names.
func (c Config) Qualities() ([]hls.VideoQuality, error) {
	out := make([]hls.VideoQuality, 0, len(c.Stream.Qualities))
	for _, name := range c.Stream.Qualities {
		switch name {
		case "high":
			out = append(out, hls.QualityHigh)
		case "medium":
			out = append(out, hls.QualityMedium)
		case "low":
			out = append(out, hls.QualityLow)
		default:
			return nil, fmt.Errorf("unknown quality %q", name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no video qualities configured")
	}
	return out, nil
}

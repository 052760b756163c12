package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/solsticetv/hls-packager/internal/hls"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Stream.SegmentIntervalSeconds != 6 {
		t.Errorf("segment interval: got %d, want 6", cfg.Stream.SegmentIntervalSeconds)
	}
	if !cfg.Local.Enabled || cfg.Local.BaseDir != "./recordings" {
		t.Errorf("local defaults: got %+v", cfg.Local)
	}
	if cfg.Remote.Enabled {
		t.Error("remote should default to disabled")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults: got %+v", cfg.Log)
	}

	qualities, err := cfg.Qualities()
	if err != nil {
		t.Fatalf("Qualities failed: %v", err)
	}
	if len(qualities) != 3 || qualities[0] != hls.QualityHigh {
		t.Errorf("default qualities: got %v", qualities)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
metrics:
  enabled: true
  address: ":9191"
stream:
  segment_interval_seconds: 4
  qualities: [high, low]
  state_file: /var/lib/packager/sequence.json
local:
  enabled: true
  base_dir: /srv/recordings
remote:
  enabled: true
  bucket: live-segments
  prefix: streams/main
  endpoint: https://s3.example.com
  region: us-east-1
perf:
  log_path: /var/log/packager/perf.csv
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log: got %+v", cfg.Log)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9191" {
		t.Errorf("metrics: got %+v", cfg.Metrics)
	}
	if cfg.Stream.SegmentIntervalSeconds != 4 {
		t.Errorf("segment interval: got %d, want 4", cfg.Stream.SegmentIntervalSeconds)
	}
	if cfg.Stream.StateFile != "/var/lib/packager/sequence.json" {
		t.Errorf("state file: got %q", cfg.Stream.StateFile)
	}
	if !cfg.Remote.Enabled || cfg.Remote.Bucket != "live-segments" {
		t.Errorf("remote: got %+v", cfg.Remote)
	}
	if cfg.Remote.Endpoint != "https://s3.example.com" || cfg.Remote.Region != "us-east-1" {
		t.Errorf("remote endpoint: got %+v", cfg.Remote.BucketConfig)
	}

	qualities, err := cfg.Qualities()
	if err != nil {
		t.Fatalf("Qualities failed: %v", err)
	}
	if len(qualities) != 2 || qualities[0] != hls.QualityHigh || qualities[1] != hls.QualityLow {
		t.Errorf("qualities: got %v", qualities)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: info
stream:
  segment_interval_seconds: 6
`)

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SEGMENT_INTERVAL", "2")
	t.Setenv("REMOTE_BUCKET", "env-bucket")
	t.Setenv("REMOTE_REGION", "eu-west-2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("log level: got %q, want warn", cfg.Log.Level)
	}
	if cfg.Stream.SegmentIntervalSeconds != 2 {
		t.Errorf("segment interval: got %d, want 2", cfg.Stream.SegmentIntervalSeconds)
	}
	if !cfg.Remote.Enabled || cfg.Remote.Bucket != "env-bucket" {
		t.Errorf("remote: got %+v", cfg.Remote)
	}
	if cfg.Remote.Region != "eu-west-2" {
		t.Errorf("remote region: got %q", cfg.Remote.Region)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero interval", "stream:\n  segment_interval_seconds: 0\n"},
		{"no destinations", "local:\n  enabled: false\n"},
		{"remote without bucket", "remote:\n  enabled: true\nlocal:\n  enabled: false\n"},
		{"unknown quality", "stream:\n  qualities: [ultra]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load should reject invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load should fail on a missing explicit config path")
	}
}

// Package logging provides structured logging using slog.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/solsticetv/hls-packager/internal/hls"
)

// Config holds logging configuration.
type Config struct {
	Format string `yaml:"format"` // "json" | "text"
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
}

// Setup initializes the global slog logger based on configuration.
func Setup(cfg Config) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger with a component name.
func Component(name string) *slog.Logger {
	return slog.With("component", name)
}

// Rendition returns a logger carrying rendition context.
func Rendition(key hls.RenditionKey) *slog.Logger {
	return slog.With("rendition", key.Prefix())
}

// Destination returns a logger carrying rendition and destination context so
// write failures can be diagnosed after the fact.
func Destination(key hls.RenditionKey, destination string) *slog.Logger {
	return slog.With("rendition", key.Prefix(), "destination", destination)
}

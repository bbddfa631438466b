package config

import (
	"log/slog"
	"strings"
)

// Normalize fills defaults and canonicalizes enumerated values.
func Normalize(cfg *Config) {
	if strings.TrimSpace(cfg.ResultsDir) == "" {
		cfg.ResultsDir = DefaultResultsDir
	}
	if len(cfg.Sinks) == 0 {
		cfg.Sinks = []string{SinkFilesystem}
	}
	for i := range cfg.Sinks {
		cfg.Sinks[i] = strings.ToLower(strings.TrimSpace(cfg.Sinks[i]))
	}
	if cfg.HasSink(SinkDuckDB) && strings.TrimSpace(cfg.DuckDBPath) == "" {
		cfg.DuckDBPath = DefaultDuckDBPath
	}
	cfg.UI = strings.ToLower(strings.TrimSpace(cfg.UI))
	if cfg.UI == "" {
		cfg.UI = UIAuto
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// SlogLevel maps log_level to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	knownSinks     = map[string]struct{}{SinkFilesystem: {}, SinkDuckDB: {}}
	knownUIModes   = map[string]struct{}{UIAuto: {}, UILive: {}, UIPlain: {}}
	knownLogLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
)

// Validate checks a config for correctness and referenced feature paths.
func Validate(cfg *Config, baseDir string) error {
	collector := &issueCollector{}
	add := collector.add

	if cfg.Version == 0 {
		add("version", "is required")
	} else if cfg.Version != 1 {
		add("version", "unsupported version %d", cfg.Version)
	}

	if strings.TrimSpace(cfg.ResultsDir) == "" {
		add("results_dir", "is required")
	}

	validateSinks(cfg, add)

	if _, ok := knownUIModes[cfg.UI]; !ok {
		add("ui", "unsupported mode %q", cfg.UI)
	}
	if _, ok := knownLogLevels[cfg.LogLevel]; !ok {
		add("log_level", "unsupported level %q", cfg.LogLevel)
	}

	for name := range cfg.Labels {
		if strings.TrimSpace(name) == "" {
			add("labels", "label names must not be empty")
		}
	}
	for key := range cfg.Environment {
		if strings.ContainsAny(key, "=\n") || strings.TrimSpace(key) == "" {
			add("environment", "invalid key %q", key)
		}
	}

	if baseDir == "" {
		baseDir = "."
	}
	validateFeatures(cfg.Features, baseDir, add)

	return collector.result()
}

func validateSinks(cfg *Config, add issueAdder) {
	seen := map[string]struct{}{}
	for i, sink := range cfg.Sinks {
		field := fmt.Sprintf("sinks[%d]", i)
		if _, ok := knownSinks[sink]; !ok {
			add(field, "unsupported sink %q", sink)
			continue
		}
		if _, dup := seen[sink]; dup {
			add(field, "duplicate sink %q", sink)
		}
		seen[sink] = struct{}{}
	}
	if cfg.HasSink(SinkDuckDB) && strings.TrimSpace(cfg.DuckDBPath) == "" {
		add("duckdb_path", "is required when the duckdb sink is enabled")
	}
}

func validateFeatures(features []string, baseDir string, add issueAdder) {
	for i, entry := range features {
		field := fmt.Sprintf("features[%d]", i)
		entry = strings.TrimSpace(entry)
		if entry == "" {
			add(field, "is empty")
			continue
		}
		if hasGlob(entry) {
			if _, err := filepath.Match(entry, ""); err != nil {
				add(field, "invalid glob: %v", err)
			}
			continue
		}
		if _, err := os.Stat(ResolvePath(baseDir, entry)); err != nil {
			add(field, "path %q not found", entry)
		}
	}
}

func hasGlob(value string) bool {
	return strings.ContainsAny(value, "*?[")
}

package config

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Sink names accepted in the sinks list.
const (
	SinkFilesystem = "filesystem"
	SinkDuckDB     = "duckdb"
)

// UI modes accepted in the ui field.
const (
	UIAuto  = "auto"
	UILive  = "live"
	UIPlain = "plain"
)

// Config is the reporter configuration file.
type Config struct {
	Version      int               `yaml:"version"`
	ResultsDir   string            `yaml:"results_dir"`
	CleanResults bool              `yaml:"clean_results"`
	Sinks        []string          `yaml:"sinks"`
	DuckDBPath   string            `yaml:"duckdb_path"`
	Features     []string          `yaml:"features"`
	Labels       map[string]string `yaml:"labels"`
	Environment  map[string]string `yaml:"environment"`
	UI           string            `yaml:"ui"`
	LogLevel     string            `yaml:"log_level"`
}

// HasSink reports whether name is an enabled sink.
func (c Config) HasSink(name string) bool {
	for _, sink := range c.Sinks {
		if sink == name {
			return true
		}
	}
	return false
}

// Parse decodes a single YAML document, rejecting unknown fields.
func Parse(data []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if err == io.EOF {
			return Config{}, fmt.Errorf("parse config: empty document")
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

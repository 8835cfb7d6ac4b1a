// Package config provides configuration loading for the quizforge
// server and pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all file-based configuration. LLM provider credentials
// stay in environment variables and are not part of this file.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Session  SessionConfig  `yaml:"session"`
	OCR      OCRConfig      `yaml:"ocr"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds database and staging paths.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	StagingPath  string `yaml:"staging_path"`
}

// PipelineConfig holds collection pipeline tunables.
type PipelineConfig struct {
	MaxSegmentSize int `yaml:"max_segment_size"`
	Concurrency    int `yaml:"concurrency"`
	ChunkSize      int `yaml:"chunk_size"`
}

// SessionConfig holds question selection tunables.
type SessionConfig struct {
	CooldownHours *int `yaml:"cooldown_hours"`
	BatchSize     int  `yaml:"batch_size"`
}

// OCRConfig holds the image-to-text service settings.
type OCRConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load reads and parses the config file at path, expands paths, and
// applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.StagingPath = expandPath(cfg.Storage.StagingPath, configDir)

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with working defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.MaxSegmentSize == 0 {
		cfg.Pipeline.MaxSegmentSize = 4000
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 4
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 100
	}
	if cfg.Session.BatchSize == 0 {
		cfg.Session.BatchSize = 20
	}
	if cfg.OCR.TimeoutSeconds == 0 {
		cfg.OCR.TimeoutSeconds = 30
	}
}

// CooldownHoursOrDefault returns the configured cool-down window in
// hours; 72 when unset. Zero is a valid explicit value and disables
// the exclusion.
func (s *SessionConfig) CooldownHoursOrDefault() int {
	if s.CooldownHours != nil {
		return *s.CooldownHours
	}
	return 72
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
